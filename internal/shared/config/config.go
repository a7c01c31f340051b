package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"

	"longtail_monitor/internal/shared/types"
)

// LoadIni loads the longtail.ini behaviour configuration file and applies
// defaults for anything the file leaves unset.
func LoadIni(cfg *types.Config, fileName string) error {
	iniFile, err := ini.Load(fileName)
	if err != nil {
		return err
	}
	if err := iniFile.MapTo(cfg); err != nil {
		return err
	}
	overrideFromEnv(&cfg.StorageConf.DataDir, "LONGTAIL_DATA_DIR")
	overrideFromEnv(&cfg.SearchConf.BaseURL, "LONGTAIL_SUGGEST_URL")
	cfg.ApplyDefaults()
	return nil
}

// LoadSeeds loads the seeds.json data file.
func LoadSeeds(fileName string) ([]*types.SeedProfile, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		// A missing file means no seeds yet, not a broken install.
		if os.IsNotExist(err) {
			return []*types.SeedProfile{}, nil
		}
		return nil, fmt.Errorf("failed to read seeds file: %w", err)
	}

	var profiles []*types.SeedProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seeds.json: %w", err)
	}
	return profiles, nil
}

// SaveSeeds persists the seed profile list back to seeds.json.
func SaveSeeds(fileName string, profiles []*types.SeedProfile) error {
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal seed profiles: %w", err)
	}
	return os.WriteFile(fileName, data, 0644)
}

// LoadLines reads a newline-delimited list file (proxy URLs, user agents).
// Blank lines and '#' comments are skipped. A missing file yields an empty
// list so both lists stay optional.
func LoadLines(fileName string) ([]string, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read list file %s: %w", fileName, err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func overrideFromEnv(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}
