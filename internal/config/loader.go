package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads "{network}.json" and "milestones.json" from dir through
// viper, the way pkg/config.Load layers the teacher's YAML configuration,
// then validates and sorts the result. Environment variables (loaded via
// godotenv from dir/.env if present, matching walletserver/config.Load's
// use of godotenv) take precedence over file values for anything under
// the SLP_ prefix, covering secrets that should not live in the JSON file
// (webhook verification salt, database DSN).
func Load(dir, network string) (*Network, error) {
	envPath := dir + "/.env"
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(dir + "/" + network + ".json")
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read network config %s: %w", network, err)
	}
	v.SetEnvPrefix("SLP")
	v.AutomaticEnv()

	values := v.AllSettings()

	milestones, err := loadMilestones(dir + "/milestones.json")
	if err != nil {
		return nil, err
	}

	n := &Network{Name: network, Values: values, Milestones: milestones}
	n.sortMilestones()
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

func loadMilestones(path string) ([]Milestone, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read milestones file: %w", err)
	}
	var entries []struct {
		Height uint64                 `json:"height"`
		Values map[string]interface{} `json:"values"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse milestones file: %w", err)
	}
	out := make([]Milestone, 0, len(entries))
	for _, e := range entries {
		out = append(out, Milestone{Height: e.Height, Values: e.Values})
	}
	return out, nil
}
