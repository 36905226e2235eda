package config

import "testing"

func validConfig() *Config {
	return &Config{
		Env:           "development",
		Port:          "8080",
		Neo4jURL:      "bolt://localhost:7687",
		Neo4jUser:     "neo4j",
		Neo4jPassword: "secret",
		OpenAIAPIKey:  "sk-test",
		Model:         "gpt-4-turbo",
		MemoryWindow:  20,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}, wantErr: false},
		{name: "missing neo4j url", mutate: func(c *Config) { c.Neo4jURL = "" }, wantErr: true},
		{name: "missing neo4j user", mutate: func(c *Config) { c.Neo4jUser = "" }, wantErr: true},
		{name: "missing neo4j password", mutate: func(c *Config) { c.Neo4jPassword = "" }, wantErr: true},
		{name: "missing api key", mutate: func(c *Config) { c.OpenAIAPIKey = "" }, wantErr: true},
		{name: "missing model", mutate: func(c *Config) { c.Model = "" }, wantErr: true},
		{name: "zero memory window", mutate: func(c *Config) { c.MemoryWindow = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("NEO4J_PASSWORD", "secret")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TEMPERATURE", "")
	t.Setenv("MODEL", "")
	t.Setenv("MEMORY_WINDOW", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Neo4jURL != "bolt://localhost:7687" {
		t.Errorf("Unexpected default Neo4j URL: %s", cfg.Neo4jURL)
	}
	if cfg.Model != "gpt-4-turbo" {
		t.Errorf("Unexpected default model: %s", cfg.Model)
	}
	if cfg.Temperature != 0.0 {
		t.Errorf("Unexpected default temperature: %f", cfg.Temperature)
	}
	if cfg.MemoryWindow != 20 {
		t.Errorf("Unexpected default memory window: %d", cfg.MemoryWindow)
	}
	if !cfg.IsDevelopment() || cfg.IsProduction() {
		t.Error("Expected development mode by default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NEO4J_PASSWORD", "secret")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MODEL", "gpt-3.5-turbo")
	t.Setenv("TEMPERATURE", "0.7")
	t.Setenv("MEMORY_WINDOW", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Model != "gpt-3.5-turbo" {
		t.Errorf("Expected the overridden model, got %s", cfg.Model)
	}
	if cfg.Temperature != 0.7 {
		t.Errorf("Expected the overridden temperature, got %f", cfg.Temperature)
	}
	if cfg.MemoryWindow != 5 {
		t.Errorf("Expected the overridden window, got %d", cfg.MemoryWindow)
	}
}

func TestGetEnvFloat_Malformed(t *testing.T) {
	t.Setenv("TEMPERATURE", "warm")
	if got := getEnvFloat("TEMPERATURE", 0.2); got != 0.2 {
		t.Errorf("Expected the default for a malformed float, got %f", got)
	}
}
