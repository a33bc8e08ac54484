// Package config holds the settings consumed by the lambda commands: region and
// credentials, the IAM role used both for permission checks and as the functions'
// execution role, the modules bucket and the project directory layout.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	validator "gopkg.in/go-playground/validator.v9"
	"gopkg.in/yaml.v3"

	"github.com/rws-framework/rws-lambda/internal/poll"
)

// Config is the root configuration. It is read once and treated as read-only.
type Config struct {
	AWS     AWS         `yaml:"aws"`
	Lambda  Lambda      `yaml:"lambda"`
	Paths   Paths       `yaml:"paths"`
	Polling poll.Policy `yaml:"polling"`
	Metrics Metrics     `yaml:"metrics"`
}

// AWS holds the region and credential pair every cloud client is scoped to.
type AWS struct {
	Region       string `yaml:"region" validate:"required"`
	AccessKey    string `yaml:"accessKey"`
	SecretKey    string `yaml:"secretKey"`
	SessionToken string `yaml:"sessionToken"`
	Endpoint     string `yaml:"endpoint"`
}

// Lambda holds function deployment settings.
type Lambda struct {
	Role          string   `yaml:"role" validate:"required,arn"`
	Bucket        string   `yaml:"bucket"`
	Runtime       string   `yaml:"runtime"`
	Handler       string   `yaml:"handler"`
	MemorySize    int64    `yaml:"memorySize" validate:"min=128,max=10240"`
	Timeout       int64    `yaml:"timeout" validate:"min=1,max=900"`
	UseEFS        *bool    `yaml:"useEfs"`
	FileSystem    string   `yaml:"fileSystem" validate:"required"`
	MountPath     string   `yaml:"mountPath" validate:"required"`
	LoaderRuntime string   `yaml:"loaderRuntime"`
	LoaderHandler string   `yaml:"loaderHandler"`
	SubnetID      string   `yaml:"subnetId"`
	VPCID         string   `yaml:"vpcId"`
	SecurityGroup []string `yaml:"securityGroups"`
}

// EFSEnabled reports whether functions mount the shared file system.
func (l Lambda) EFSEnabled() bool {
	return l.UseEFS == nil || *l.UseEFS
}

// Paths describes where function sources, artifacts and payloads live.
type Paths struct {
	Project   string `yaml:"project"`
	Functions string `yaml:"functions"`
	Cache     string `yaml:"cache"`
	Payloads  string `yaml:"payloads"`
	Modules   string `yaml:"modules"`
}

// Metrics configures where command metrics are shipped after a run.
type Metrics struct {
	CloudWatch  bool   `yaml:"cloudWatch"`
	Namespace   string `yaml:"namespace"`
	Pushgateway string `yaml:"pushgateway"`
}

// Environment variables overriding file settings.
const (
	EnvRegion       = "RWS_AWS_REGION"
	EnvAccessKey    = "RWS_AWS_ACCESS_KEY"
	EnvSecretKey    = "RWS_AWS_SECRET_KEY"
	EnvSessionToken = "RWS_AWS_SESSION_TOKEN"
	EnvRole         = "RWS_AWS_LAMBDA_ROLE"
	EnvBucket       = "RWS_AWS_LAMBDA_BUCKET"
)

// Default returns the configuration used for unset fields.
func Default() Config {
	return Config{
		Lambda: Lambda{
			Runtime:       "nodejs18.x",
			Handler:       "index.handler",
			MemorySize:    512,
			Timeout:       300,
			FileSystem:    "RWS_EFS",
			MountPath:     "/mnt/efs",
			LoaderRuntime: "provided.al2023",
			LoaderHandler: "bootstrap",
		},
		Paths: Paths{
			Functions: "lambda-functions",
			Cache:     filepath.Join("node_modules", ".rws"),
			Payloads:  "payloads",
			Modules:   "node_modules",
		},
		Polling: poll.DefaultPolicy(),
		Metrics: Metrics{
			Namespace: "RWS/Lambda",
		},
	}
}

// Load reads the YAML file at path (optional when empty), applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ErrConfigInvalid{Message: "Unable to read config file: " + err.Error()}
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, &ErrConfigInvalid{Message: "Unable to parse config file: " + err.Error()}
		}
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	overrides := map[string]*string{
		EnvRegion:       &c.AWS.Region,
		EnvAccessKey:    &c.AWS.AccessKey,
		EnvSecretKey:    &c.AWS.SecretKey,
		EnvSessionToken: &c.AWS.SessionToken,
		EnvRole:         &c.Lambda.Role,
		EnvBucket:       &c.Lambda.Bucket,
	}
	for key, field := range overrides {
		if v, ok := lookup(key); ok && v != "" {
			*field = v
		}
	}
}

func (c *Config) resolvePaths() error {
	if c.Paths.Project == "" {
		wd, err := os.Getwd()
		if err != nil {
			return &ErrConfigInvalid{Message: "Unable to determine working directory: " + err.Error()}
		}
		c.Paths.Project = wd
	}

	for _, p := range []*string{&c.Paths.Functions, &c.Paths.Cache, &c.Paths.Payloads, &c.Paths.Modules} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(c.Paths.Project, *p)
		}
	}
	return nil
}

// Validate checks required fields.
func (c Config) Validate() error {
	validate := validator.New()
	validate.RegisterValidation("arn", arnValidator)

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	if verrs, ok := err.(validator.ValidationErrors); ok {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Namespace())
		}
		return &ErrConfigInvalid{Message: "Invalid or missing fields: " + strings.Join(fields, ", ")}
	}
	return &ErrConfigInvalid{Message: err.Error()}
}

// PollTimeout returns the upper bound of a single wait.
func (c Config) PollTimeout() time.Duration {
	return c.Polling.MaxElapsed
}

func arnValidator(fl validator.FieldLevel) bool {
	parts := strings.SplitN(fl.Field().String(), ":", 6)
	return len(parts) == 6 && parts[0] == "arn" && parts[2] != "" && parts[5] != ""
}

// MarshalLogObject is a part of zapcore.ObjectMarshaler interface.
func (c Config) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("region", c.AWS.Region)
	if c.AWS.AccessKey != "" {
		enc.AddString("accessKey", "*****")
	}
	if c.AWS.SecretKey != "" {
		enc.AddString("secretKey", "*****")
	}
	if c.AWS.SessionToken != "" {
		enc.AddString("sessionToken", "*****")
	}
	if c.AWS.Endpoint != "" {
		enc.AddString("endpoint", c.AWS.Endpoint)
	}
	enc.AddString("role", c.Lambda.Role)
	enc.AddString("bucket", c.Lambda.Bucket)
	enc.AddString("fileSystem", c.Lambda.FileSystem)
	enc.AddBool("useEfs", c.Lambda.EFSEnabled())
	enc.AddString("project", c.Paths.Project)
	return nil
}
