package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Database DatabaseConfig  `mapstructure:"database"`
	Redis    RedisConfig     `mapstructure:"redis"`
	JWT      JWTConfig       `mapstructure:"jwt"`
	Admin    AdminSeedConfig `mapstructure:"admin"`
	Lobby    LobbyConfig     `mapstructure:"lobby"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int    `mapstructure:"expire"` // hours
}

type AdminSeedConfig struct {
	DefaultUsername string `mapstructure:"defaultUsername"`
	DefaultPassword string `mapstructure:"defaultPassword"`
}

// LobbyConfig controls table defaults and the standing public lobbies each
// game keeps warm for players who don't want to host their own.
type LobbyConfig struct {
	MaxPlayers          int      `mapstructure:"maxPlayers"`
	SmallBlind          int64    `mapstructure:"smallBlind"`
	BigBlind            int64    `mapstructure:"bigBlind"`
	StartingStack       int64    `mapstructure:"startingStack"`
	PublicPokerCodes    []string `mapstructure:"publicPokerCodes"`
	PublicUnoCodes      []string `mapstructure:"publicUnoCodes"`
	ReconnectGraceSeconds int    `mapstructure:"reconnectGraceSeconds"`
	TurnTimeoutSeconds  int      `mapstructure:"turnTimeoutSeconds"`
	CosmeticsTimeoutMs  int      `mapstructure:"cosmeticsTimeoutMs"`
}

var GlobalConfig *Config

func LoadConfig(path string) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
	GlobalConfig = &cfg
}
