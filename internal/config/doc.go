/*
Package config loads funcan settings from YAML or JSON files.

Config wraps a map[string]any and provides typed accessors that fall back
to a default when a key is missing or has the wrong type:

	cfg, err := config.FromFile("funcan.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	samples := cfg.Section("analysis").Int("samples", 500)

Settings is the typed record the binaries use; LoadSettings reads and
validates it in one step, and Defaults returns the built-in values.

Durations accept time.ParseDuration strings ("30s") or numbers of
seconds. Integers accept float64 values without a fractional part, as
produced by encoding/json.
*/
package config
