// Package config provides the edgegate configuration model.
//
// Configuration is a single YAML document loaded once at startup with
// ${VAR} and ${VAR:-default} environment substitution. It is validated
// with struct tags and semantic checks, then handed to the gatekeeper
// which derives everything else from it. Nothing re-reads it afterwards.
//
//	cfg, err := config.LoadConfig("configs/edgegate.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    return err
//	}
package config
