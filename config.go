package main

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Repo struct {
		Token  string `yaml:"token"`
		Owner  string `yaml:"owner"`
		Name   string `yaml:"name"`
		Branch string `yaml:"branch"`
	} `yaml:"repo"`
	Storage struct {
		Namespace string `yaml:"namespace"`
		Manifest  string `yaml:"manifest"`
	} `yaml:"storage"`
	Sweep struct {
		Interval string `yaml:"interval"`
	} `yaml:"sweep"`
}

// SweepInterval parses the configured sweep interval, falling back to
// hourly on a bad or absent value.
func (c *Config) SweepInterval() time.Duration {
	d, err := time.ParseDuration(c.Sweep.Interval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

func LoadConfig() *Config {
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}

	config := defaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		log.Printf("No config file, using defaults and environment: %v", err)
	} else if err := yaml.Unmarshal(data, config); err != nil {
		log.Printf("Failed to parse config file, using defaults: %v", err)
		config = defaultConfig()
	}

	// Environment overrides, so the credential never has to live in a file
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		config.Repo.Token = v
	}
	if v := os.Getenv("REPO_OWNER"); v != "" {
		config.Repo.Owner = v
	}
	if v := os.Getenv("REPO_NAME"); v != "" {
		config.Repo.Name = v
	}
	if v := os.Getenv("REPO_BRANCH"); v != "" {
		config.Repo.Branch = v
	}
	if v := os.Getenv("PORT"); v != "" {
		config.Server.Port = v
	}

	return config
}

func defaultConfig() *Config {
	config := &Config{}
	config.Server.Port = "8080"
	config.Repo.Branch = "main"
	config.Storage.Namespace = "temp"
	config.Storage.Manifest = "./tmpdrop.db"
	config.Sweep.Interval = "1h"
	return config
}

// Missing lists the required settings that are absent. The service
// still starts without them so /health can say exactly what is missing,
// but uploads and sweeps will fail until they are set.
func (c *Config) Missing() []string {
	var missing []string
	if c.Repo.Token == "" {
		missing = append(missing, "repo.token")
	}
	if c.Repo.Owner == "" {
		missing = append(missing, "repo.owner")
	}
	if c.Repo.Name == "" {
		missing = append(missing, "repo.name")
	}
	if c.Repo.Branch == "" {
		missing = append(missing, "repo.branch")
	}
	return missing
}

func (c *Config) Configured() bool {
	return len(c.Missing()) == 0
}
