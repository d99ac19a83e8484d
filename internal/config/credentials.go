package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

type spotifyCredentials struct {
	ClientID     string `json:"cid"`
	ClientSecret string `json:"cis"`
}

type geniusCredentials struct {
	AccessToken string `json:"cat"`
}

// loadCredentials reads the JSON credential files. Relative paths resolve against
// the config directory; a missing file is not an error since env vars may supply
// the same values.
func (c *Config) loadCredentials(configDir string) error {
	var spotify spotifyCredentials
	found, err := readJSONFile(resolvePath(configDir, c.Spotify.CredentialsPath), &spotify)
	if err != nil {
		return fmt.Errorf("failed to read spotify credentials: %w", err)
	}
	if found {
		c.Spotify.ClientID = spotify.ClientID
		c.Spotify.ClientSecret = spotify.ClientSecret
	}

	var genius geniusCredentials
	found, err = readJSONFile(resolvePath(configDir, c.Genius.CredentialsPath), &genius)
	if err != nil {
		return fmt.Errorf("failed to read genius credentials: %w", err)
	}
	if found {
		c.Genius.AccessToken = genius.AccessToken
	}

	return nil
}

func resolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func readJSONFile(path string, dest any) (bool, error) {
	if path == "" {
		return false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	return true, nil
}
