package config

type NotificationConfig struct {
	// SNS topic the email/push pipeline subscribes to.
	SNSEnabled  bool   `yaml:"sns_enabled"`
	AWSRegion   string `yaml:"aws_region"`
	SNSTopicARN string `yaml:"sns_topic_arn"`

	// Direct SMS to members.
	TwilioEnabled    bool   `yaml:"twilio_enabled"`
	TwilioAccountSID string `yaml:"twilio_account_sid"`
	TwilioAuthToken  string `yaml:"twilio_auth_token"`
	TwilioFromNumber string `yaml:"twilio_from_number"`
}

func loadNotificationConfig() *NotificationConfig {
	return &NotificationConfig{
		SNSEnabled:       getEnvAsBool("SNS_ENABLED", false),
		AWSRegion:        getEnv("AWS_REGION", "ap-southeast-1"),
		SNSTopicARN:      getEnv("SNS_TOPIC_ARN", ""),
		TwilioEnabled:    getEnvAsBool("TWILIO_ENABLED", false),
		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
	}
}
