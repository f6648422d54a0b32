package config

type StoreConfig struct {
	Path        string `yaml:"path"`
	Compression string `yaml:"compression"`
}

func NewStoreConfig() *StoreConfig {
	return &StoreConfig{
		Path:        "./data",
		Compression: "snappy",
	}
}
