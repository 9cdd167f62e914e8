package authorize

import "github.com/Alijeyrad/simorq_screening/config"

type Config struct {
	// ModelPath overrides the embedded model when set.
	ModelPath string

	// PolicyPath is a casbin CSV policy file. When empty the default
	// permissions are loaded into memory.
	PolicyPath string

	// EnableAudit logs every authorization decision.
	EnableAudit bool
}

func FromCentralConfig(c config.AuthorizationConfig) Config {
	return Config{
		ModelPath:   c.CasbinModelPath,
		PolicyPath:  c.CasbinPolicyPath,
		EnableAudit: c.EnableAudit,
	}
}
