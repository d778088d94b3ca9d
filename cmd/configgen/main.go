package main

import (
	"flag"
	"log"

	"github.com/danmuck/pubd/internal/config"
)

func main() {
	kind := flag.String("kind", "pubd", "config kind: pubd|pubctl")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing pubd config file")
	input := flag.String("input", "cmd/pubd/config.toml", "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		if *kind != "pubd" {
			log.Fatalf("validation supports kind pubd only, got %s", *kind)
		}
		cfg, err := config.LoadServerConfig(*input)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated pubd config at %s (%d publishers)", *input, len(cfg.Publishers))
		return
	}

	target := *output
	if target == "" {
		switch *kind {
		case "pubd":
			target = "cmd/pubd/config.toml"
		case "pubctl":
			target = "cmd/pubctl/config.toml"
		default:
			log.Fatalf("unknown kind: %s", *kind)
		}
	}

	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, target)
}
