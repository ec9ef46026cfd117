package referral

// FraudSignals are the per-member inputs to the fraud scorer. The engine
// assembles them from customer and event aggregates; the scorer itself is
// pure.
type FraudSignals struct {
	// MaxSharedContactF1s is the size of the largest cluster of the
	// referrer's F1 customers sharing one normalized phone or address.
	MaxSharedContactF1s int
	// ReversedOrders counts reversed (refunded / failed COD) events among
	// the referrer's F1 orders in the current period.
	ReversedOrders int
	// DeliveredOrders counts non-reversed events in the current period.
	DeliveredOrders int
	// CurrentMonthRevenue and PreviousMonthRevenue feed the spike ratio.
	CurrentMonthRevenue  int64
	PreviousMonthRevenue int64
	// SelfReferral is advisory here: when self-referral blocking is
	// enabled the attach is rejected outright and this signal never
	// fires.
	SelfReferral bool
}

// FraudResult is a 0-100 score with the flags that contributed to it.
type FraudResult struct {
	Score int
	Flags []string
}

// Fraud flag names surfaced to admins.
const (
	FlagDuplicateContacts = "duplicate_contact_cluster"
	FlagHighReturnRate    = "high_return_rate"
	FlagRevenueSpike      = "revenue_spike"
	FlagSelfReferral      = "self_referral"
)

const (
	sharedContactFloor  = 3
	returnRateThreshold = 0.4
	returnRateMinOrders = 5
	spikeRatioThreshold = 5.0
	spikeRevenueFloor   = 1_000_000
)

// ScoreFraud sums independent weighted sub-scores and caps the total at
// 100. A high score marks the member fraud_suspect for admin review; it
// never blocks commission on its own.
func ScoreFraud(signals FraudSignals) FraudResult {
	score := 0
	var flags []string

	// Many F1s reachable at the same phone/address points at one person
	// registering fake buyers.
	if signals.MaxSharedContactF1s >= sharedContactFloor {
		sub := 30 + (signals.MaxSharedContactF1s-sharedContactFloor)*5
		if sub > 45 {
			sub = 45
		}
		score += sub
		flags = append(flags, FlagDuplicateContacts)
	}

	// High reversal rate across the F1 pool: orders placed to farm
	// commission and returned after payout.
	total := signals.ReversedOrders + signals.DeliveredOrders
	if total >= returnRateMinOrders {
		ratio := float64(signals.ReversedOrders) / float64(total)
		if ratio >= returnRateThreshold {
			score += 25
			flags = append(flags, FlagHighReturnRate)
		}
	}

	// Month-over-month revenue spike. Only meaningful once the prior
	// month had real volume.
	if signals.PreviousMonthRevenue >= spikeRevenueFloor {
		ratio := float64(signals.CurrentMonthRevenue) / float64(signals.PreviousMonthRevenue)
		if ratio >= spikeRatioThreshold {
			score += 20
			flags = append(flags, FlagRevenueSpike)
		}
	}

	if signals.SelfReferral {
		score += 15
		flags = append(flags, FlagSelfReferral)
	}

	if score > 100 {
		score = 100
	}
	return FraudResult{Score: score, Flags: flags}
}
