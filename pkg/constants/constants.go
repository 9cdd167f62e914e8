package constants

const (
	ConfigName   = "config"
	ConfigFormat = "yaml"

	// EnvPrefix is prepended to every environment override, e.g. SCREENING_DATABASE_HOST.
	EnvPrefix = "SCREENING"

	ServiceName = "simorq_screening"

	// SubjectPrefix is the default NATS subject root for screening events.
	SubjectPrefix = "screening"
)
