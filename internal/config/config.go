// Package config loads the gateway's INI-style configuration file and
// layers command-line overrides on top of it: every config item is
// optional, has a sane default, and can be overridden on the command
// line.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// General holds the [general] section.
type General struct {
	ConfigsFolder string `mapstructure:"configs_folder"`
	PluginsFolder string `mapstructure:"plugins_folder"`
	Interface     string `mapstructure:"interface"`
}

// Webserver holds the [webserver] section.
type Webserver struct {
	HTTP       bool   `mapstructure:"http"`
	Port       int    `mapstructure:"port"`
	HTTPS      bool   `mapstructure:"https"`
	SecurePort int    `mapstructure:"secure_port"`
	BasePath   string `mapstructure:"base_path"`
}

// Certificates holds the [certificates] section.
type Certificates struct {
	CertPEM string `mapstructure:"cert_pem"`
	CertKey string `mapstructure:"cert_key"`
}

// Media holds the [media] section.
type Media struct {
	RTPPortRange string `mapstructure:"rtp_port_range"`
}

// NAT holds the [nat] section.
type NAT struct {
	PublicIP   string `mapstructure:"public_ip"`
	STUNServer string `mapstructure:"stun_server"`
	STUNPort   int    `mapstructure:"stun_port"`
}

// Config is the fully resolved gateway configuration: defaults,
// overlaid by the INI file, overlaid by CLI flags.
type Config struct {
	General      General      `mapstructure:"general"`
	Webserver    Webserver    `mapstructure:"webserver"`
	Certificates Certificates `mapstructure:"certificates"`
	Media        Media        `mapstructure:"media"`
	NAT          NAT          `mapstructure:"nat"`
}

// Default returns the configuration the gateway runs with when no
// file and no flags are supplied.
func Default() *Config {
	return &Config{
		General: General{
			ConfigsFolder: "./configs",
			PluginsFolder: "./plugins",
			Interface:     "",
		},
		Webserver: Webserver{
			HTTP:       true,
			Port:       8088,
			HTTPS:      false,
			SecurePort: 8089,
			BasePath:   "/janus",
		},
		Media: Media{
			RTPPortRange: "20000-40000",
		},
		NAT: NAT{
			STUNPort: 3478,
		},
	}
}

// Flags registers every CLI configuration override onto fs. cfgFile
// receives --config; the rest are read back in Load via fs.
func Flags(fs *pflag.FlagSet) (cfgFile *string) {
	cfgFile = fs.String("config", "", "path to the INI configuration file")
	fs.String("configs-folder", "", "overrides [general] configs_folder")
	fs.String("plugins-folder", "", "overrides [general] plugins_folder")
	fs.String("interface", "", "overrides [general] interface")
	fs.Int("port", 0, "overrides [webserver] port")
	fs.Int("secure-port", 0, "overrides [webserver] secure_port")
	fs.String("base-path", "", "overrides [webserver] base_path")
	fs.String("cert-pem", "", "overrides [certificates] cert_pem")
	fs.String("cert-key", "", "overrides [certificates] cert_key")
	fs.String("stun-server", "", "overrides [nat] stun_server")
	fs.String("public-ip", "", "overrides [nat] public_ip")
	fs.String("rtp-port-range", "", "overrides [media] rtp_port_range")
	fs.Bool("no-http", false, "disable the plain HTTP listener")
	return cfgFile
}

// Load builds a Config from defaults, the INI file (explicit path, or
// "janus.ini" searched for in /etc/janus-gateway and then the working
// directory if cfgFile is empty), the JANUS_* environment (section and
// key joined by underscores, e.g. JANUS_WEBSERVER_PORT), and finally
// fs — in ascending precedence. A missing file leaves the defaults.
func Load(cfgFile string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("ini")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("janus")
		v.AddConfigPath("/etc/janus-gateway")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("JANUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{
		"general.configs_folder", "general.plugins_folder", "general.interface",
		"webserver.http", "webserver.port", "webserver.https", "webserver.secure_port", "webserver.base_path",
		"certificates.cert_pem", "certificates.cert_key", "media.rtp_port_range",
		"nat.public_ip", "nat.stun_server", "nat.stun_port",
	} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: reading %s: %w", cfgFile, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	if fs != nil {
		applyFlagOverrides(cfg, fs)
	}
	return cfg, nil
}

// applyFlagOverrides layers CLI flags over cfg, skipping any flag that
// was never explicitly set so the INI file (or default) stands.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) {
	stringFlag := func(name string, dst *string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	intFlag := func(name string, dst *int) {
		if fs.Changed(name) {
			*dst, _ = fs.GetInt(name)
		}
	}

	stringFlag("configs-folder", &cfg.General.ConfigsFolder)
	stringFlag("plugins-folder", &cfg.General.PluginsFolder)
	stringFlag("interface", &cfg.General.Interface)
	intFlag("port", &cfg.Webserver.Port)
	intFlag("secure-port", &cfg.Webserver.SecurePort)
	stringFlag("base-path", &cfg.Webserver.BasePath)
	stringFlag("cert-pem", &cfg.Certificates.CertPEM)
	stringFlag("cert-key", &cfg.Certificates.CertKey)
	stringFlag("stun-server", &cfg.NAT.STUNServer)
	stringFlag("public-ip", &cfg.NAT.PublicIP)
	stringFlag("rtp-port-range", &cfg.Media.RTPPortRange)

	if fs.Changed("no-http") {
		if noHTTP, _ := fs.GetBool("no-http"); noHTTP {
			cfg.Webserver.HTTP = false
		}
	}
}
