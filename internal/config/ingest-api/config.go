package ingest_api_config

import (
	"time"

	"github.com/NordCoder/Tally/internal/ingest"
	"github.com/NordCoder/Tally/internal/obs"
	pg "github.com/NordCoder/Tally/internal/repository/postgres"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type Storage struct {
	// Driver is "postgres" or "memory".
	Driver         string `mapstructure:"driver"`
	MigrateOnStart bool   `mapstructure:"migrate_on_start"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Ingest struct {
	MaxRows         int       `mapstructure:"max_rows"`
	MinDate         time.Time `mapstructure:"min_date"`
	LastValuesLimit int       `mapstructure:"last_values_limit"`
}

func (ic Ingest) AsValidatorConfig() ingest.ValidatorConfig {
	return ingest.ValidatorConfig{MaxRows: ic.MaxRows, MinDate: ic.MinDate}
}

type Outbox struct {
	Enable        bool          `mapstructure:"enable"`
	Workers       int           `mapstructure:"workers"`
	BatchSize     int           `mapstructure:"batch_size"`
	WaitTime      time.Duration `mapstructure:"wait_time"`
	InProgressTTL time.Duration `mapstructure:"in_progress_ttl"`
}

type Kafka struct {
	Brokers           []string `mapstructure:"brokers"`
	Topic             string   `mapstructure:"topic"`
	Partitions        int      `mapstructure:"partitions"`
	ReplicationFactor int      `mapstructure:"replication_factor"`
}

type Config struct {
	App     App       `mapstructure:"app"`
	Server  Server    `mapstructure:"server"`
	Storage Storage   `mapstructure:"storage"`
	DB      pg.Config `mapstructure:"db"`
	OTEL    OTEL      `mapstructure:"otel"`
	Log     Log       `mapstructure:"log"`
	Ingest  Ingest    `mapstructure:"ingest"`
	Outbox  Outbox    `mapstructure:"outbox"`
	Kafka   Kafka     `mapstructure:"kafka"`
}

func (c *Config) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      c.OTEL.Enable,
		Endpoint:    c.OTEL.OTLPEndpoint,
		ServiceName: c.OTEL.ServiceName,
		Version:     c.App.Version,
		SampleRatio: c.OTEL.SampleRatio,
	}
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
