package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Host     string   `koanf:"host"`
	Troi     Troi     `koanf:"troi"`
	Personio Personio `koanf:"personio"`
	Database Database `koanf:"db"`
	Cache    Cache    `koanf:"cache"`
}

type Troi struct {
	BaseURL string `koanf:"baseurl"`
}

type Personio struct {
	BaseURL      string `koanf:"baseurl"`
	ClientId     string `koanf:"clientid"`
	ClientSecret string `koanf:"clientsecret"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Cache struct {
	// PruneCron is the schedule on which day buckets outside the sliding
	// window are dropped.
	PruneCron string `koanf:"prunecron"`
	// WindowDays is the number of days kept on each side of today.
	WindowDays int `koanf:"windowdays"`
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Application{
		Host: "http://localhost:3000",
		Troi: Troi{
			BaseURL: "https://digitalservice.troi.software/api/v2/rest",
		},
		Personio: Personio{
			BaseURL: "https://api.personio.de/v1",
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "zeitblick",
			Pass:   "",
			Name:   "zeitblick",
			Schema: "zeitblick",
		},
		Cache: Cache{
			PruneCron:  "0 4 * * *",
			WindowDays: 90,
		},
	}, "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "ZEITBLICK_",
		TransformFunc: func(k, v string) (string, any) {
			// Transform the key.
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "ZEITBLICK_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
