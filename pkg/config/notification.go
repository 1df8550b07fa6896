package config

type NotificationsConfig struct {
	// Detailed sends one embed per cluster instead of a summary only.
	Detailed     bool                `yaml:"detailed" koanf:"detailed"`
	SkipEmptyRun bool                `yaml:"skip_empty_run" koanf:"skip_empty_run"`
	Service      NotificationService `yaml:"service" koanf:"service"`
}

type NotificationService struct {
	Discord string `yaml:"discord" koanf:"discord"`
}
