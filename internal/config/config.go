package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "PVTZ_SYNC_"

	defaultConfigPath     = "pvtz-sync.yaml"
	defaultDotenvPath     = ".env"
	defaultSyncInterval   = time.Minute
	defaultRequestNetwork = NetworkPublic
	defaultProvider       = "pvtz"
	defaultRemark         = "aliyun_pvtz_sync.generated"
	defaultLogLevel       = "info"
	defaultLogEnv         = "prod"
	defaultNameserver     = "100.100.2.136:53"
	defaultVerifyTimeout  = 3 * time.Second

	NetworkPublic = "public"
	NetworkVPC    = "vpc"
)

type Config struct {
	SyncInterval time.Duration `yaml:"syncInterval"`
	StatePath    string        `yaml:"statePath"`
	MetricsAddr  string        `yaml:"metricsAddr"`
	Log          Log           `yaml:"log"`
	Aliyun       Aliyun        `yaml:"aliyun"`
	DNS          DNS           `yaml:"dns"`
	Inventory    Inventory     `yaml:"inventory"`
	Reconcile    Reconcile     `yaml:"reconcile"`
	Verify       Verify        `yaml:"verify"`
}

type Log struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

// Aliyun holds credentials shared by the ECS and PrivateZone clients.
type Aliyun struct {
	AccessKey      string `yaml:"accessKey"`
	SecretKey      string `yaml:"secretKey"`
	RegionID       string `yaml:"regionId"`
	RequestNetwork string `yaml:"requestNetwork"`
}

type DNS struct {
	Provider        string `yaml:"provider"`
	Domain          string `yaml:"domain"`
	RegionID        string `yaml:"regionId"`
	ResourceGroupID string `yaml:"resourceGroupId"`
	Token           string `yaml:"token"`
	TTL             int    `yaml:"ttl"`
}

type Inventory struct {
	RegionID           string   `yaml:"regionId"`
	ZoneID             string   `yaml:"zoneId"`
	VpcID              string   `yaml:"vpcId"`
	VSwitchID          string   `yaml:"vswitchId"`
	SecurityGroupID    string   `yaml:"securityGroupId"`
	ResourceGroupID    string   `yaml:"resourceGroupId"`
	InstanceIDs        []string `yaml:"instanceIds"`
	ExcludeInstanceIDs []string `yaml:"excludeInstanceIds"`
}

type Reconcile struct {
	DryRun bool   `yaml:"dryRun"`
	Remark string `yaml:"remark"`
}

type Verify struct {
	Nameserver string        `yaml:"nameserver"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Load reads .env, then the optional yaml file at path, then PVTZ_SYNC_*
// environment overrides. An empty path falls back to PVTZ_SYNC_CONFIG.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(defaultDotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Default().Warn("fail load dotenv file, proceeding", "path", defaultDotenvPath, "error", err)
	}

	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG")
	}
	if path == "" {
		path = defaultConfigPath
	}

	var cfg Config
	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Default().Debug("fail find config file, proceeding", "path", path)
	case err != nil:
		return nil, fmt.Errorf("open config file: %w", err)
	default:
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			f.Close()
			return nil, fmt.Errorf("decode config file %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			slog.Default().Warn("fail close config file", "path", path, "error", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if interval := getenv("INTERVAL"); interval != "" {
		if d, err := parseInterval(interval); err == nil {
			cfg.SyncInterval = d
		} else {
			slog.Default().Warn("fail parse sync interval", "interval", interval, "error", err)
		}
	}
	setString(&cfg.StatePath, "STATE_PATH")
	setString(&cfg.MetricsAddr, "METRICS_ADDR")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Env, "LOG_ENV")

	setString(&cfg.Aliyun.AccessKey, "ACCESS_KEY")
	setString(&cfg.Aliyun.SecretKey, "SECRET_KEY")
	setString(&cfg.Aliyun.RegionID, "REGION_ID")
	setString(&cfg.Aliyun.RequestNetwork, "REQUEST_NETWORK")

	setString(&cfg.DNS.Provider, "PROVIDER")
	setString(&cfg.DNS.Domain, "PVTZ_DOMAIN")
	setString(&cfg.DNS.RegionID, "PVTZ_REGION_ID")
	setString(&cfg.DNS.ResourceGroupID, "PVTZ_RESOURCE_GROUP_ID")
	setString(&cfg.DNS.Token, "CLOUDFLARE_TOKEN")
	if ttl := getenv("TTL"); ttl != "" {
		if v, err := strconv.Atoi(ttl); err == nil {
			cfg.DNS.TTL = v
		} else {
			slog.Default().Warn("fail parse ttl to int from string", "ttl", ttl, "error", err)
		}
	}

	setString(&cfg.Inventory.RegionID, "ECS_REGION_ID")
	setString(&cfg.Inventory.ZoneID, "ECS_ZONE_ID")
	setString(&cfg.Inventory.VpcID, "ECS_VPC_ID")
	setString(&cfg.Inventory.VSwitchID, "ECS_VSWITCH_ID")
	setString(&cfg.Inventory.SecurityGroupID, "ECS_SECURITY_GROUP_ID")
	setString(&cfg.Inventory.ResourceGroupID, "ECS_RESOURCE_GROUP_ID")
	if ids := getenv("ECS_INSTANCE_IDS"); ids != "" {
		cfg.Inventory.InstanceIDs = strings.Fields(ids)
	}
	if ids := getenv("ECS_EXCLUDE_INSTANCE_IDS"); ids != "" {
		cfg.Inventory.ExcludeInstanceIDs = strings.Fields(ids)
	}

	if dryRun := getenv("DRY_RUN"); dryRun != "" {
		if v, err := strconv.ParseBool(dryRun); err == nil {
			cfg.Reconcile.DryRun = v
		} else {
			slog.Default().Warn("fail parse dryrun to bool from string", "dryrun", dryRun)
		}
	}
	setString(&cfg.Reconcile.Remark, "REMARK")

	setString(&cfg.Verify.Nameserver, "VERIFY_NAMESERVER")
}

func applyDefaults(cfg *Config) {
	if cfg.SyncInterval == 0 {
		cfg.SyncInterval = defaultSyncInterval
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	if cfg.Log.Env == "" {
		cfg.Log.Env = defaultLogEnv
	}
	if cfg.Aliyun.RequestNetwork == "" {
		cfg.Aliyun.RequestNetwork = defaultRequestNetwork
	}
	if cfg.DNS.Provider == "" {
		cfg.DNS.Provider = defaultProvider
	}
	if cfg.DNS.RegionID == "" {
		cfg.DNS.RegionID = cfg.Aliyun.RegionID
	}
	if cfg.Inventory.RegionID == "" {
		cfg.Inventory.RegionID = cfg.Aliyun.RegionID
	}
	if cfg.Reconcile.Remark == "" {
		cfg.Reconcile.Remark = defaultRemark
	}
	if cfg.Verify.Nameserver == "" {
		cfg.Verify.Nameserver = defaultNameserver
	}
	if cfg.Verify.Timeout == 0 {
		cfg.Verify.Timeout = defaultVerifyTimeout
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.SyncInterval < 0 {
		errs = append(errs, fmt.Errorf("sync interval must be positive, got %s", c.SyncInterval))
	}
	if c.DNS.Domain == "" {
		errs = append(errs, errors.New("dns domain required (PVTZ_SYNC_PVTZ_DOMAIN)"))
	}
	switch c.Aliyun.RequestNetwork {
	case NetworkPublic, NetworkVPC:
	default:
		errs = append(errs, fmt.Errorf("unknown request network %q", c.Aliyun.RequestNetwork))
	}
	if c.Aliyun.AccessKey == "" || c.Aliyun.SecretKey == "" {
		errs = append(errs, errors.New("aliyun access key and secret key required"))
	}
	if c.Inventory.RegionID == "" {
		errs = append(errs, errors.New("ecs region id required (PVTZ_SYNC_REGION_ID or PVTZ_SYNC_ECS_REGION_ID)"))
	}
	switch c.DNS.Provider {
	case "pvtz":
		if c.DNS.RegionID == "" {
			errs = append(errs, errors.New("pvtz region id required (PVTZ_SYNC_REGION_ID or PVTZ_SYNC_PVTZ_REGION_ID)"))
		}
	case "cloudflare":
		if c.DNS.Token == "" {
			errs = append(errs, errors.New("cloudflare api token required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown dns provider %q", c.DNS.Provider))
	}
	if c.DNS.TTL < 0 {
		errs = append(errs, fmt.Errorf("ttl must not be negative, got %d", c.DNS.TTL))
	}
	return errors.Join(errs...)
}

// parseInterval accepts whole seconds or a Go duration string.
func parseInterval(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("interval must be positive, got %d", secs)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %s", d)
	}
	return d, nil
}

func getenv(key string) string {
	return os.Getenv(envPrefix + key)
}

func setString(dst *string, key string) {
	if v := getenv(key); v != "" {
		*dst = v
	}
}
