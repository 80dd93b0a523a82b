package main

import (
	"github.com/rs/zerolog/log"

	"github.com/retailmate/core/assistant/calendar"
	"github.com/retailmate/core/assistant/cart"
	"github.com/retailmate/core/assistant/catalog"
	"github.com/retailmate/core/assistant/contextbuilder"
	"github.com/retailmate/core/assistant/contract"
	"github.com/retailmate/core/assistant/embedder"
	"github.com/retailmate/core/assistant/vectorindex"
	configx "github.com/retailmate/core/pkg/config"
	_ "github.com/retailmate/core/pkg/logger/autoload"
)

type AppConfig struct {
	OfflineEmbedder bool   `envconfig:"OFFLINE_EMBEDDER" split_words:"true" default:"false"`
	CatalogEnabled  bool   `envconfig:"CATALOG_ENABLED" split_words:"true" default:"false"`
	HeuristicsFile  string `envconfig:"HEURISTICS_FILE" split_words:"true"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("RETAILMATE")

	indexCfg := configx.MustNew[vectorindex.Config]("INDEX")
	index, err := vectorindex.New(*indexCfg)
	if err != nil {
		panic(err)
	}

	var emb contract.Embedder
	if appCfg.OfflineEmbedder {
		emb = embedder.NewHashWithDimensions(indexCfg.Dimension)
	} else {
		embCfg := configx.MustNew[embedder.Config]("EMBEDDER")
		emb, err = embedder.NewOpenAI(*embCfg)
		if err != nil {
			panic(err)
		}
	}

	calCfg := configx.MustNew[calendar.Config]("CALENDAR")
	cal := calendar.MustNewClient(*calCfg)

	var opts []contextbuilder.Option
	if appCfg.CatalogEnabled {
		catCfg := configx.MustNew[catalog.Config]("CATALOG")
		src, err := catalog.NewPostgres(*catCfg)
		if err != nil {
			panic(err)
		}
		opts = append(opts, contextbuilder.WithCatalogFallback(src))
	}

	builder, err := contextbuilder.New(emb, index, cal, opts...)
	if err != nil {
		panic(err)
	}

	store, err := cart.NewStore(builder)
	if err != nil {
		panic(err)
	}

	heur, err := cart.LoadHeuristics(appCfg.HeuristicsFile)
	if err != nil {
		panic(err)
	}
	if _, err := cart.NewEngine(store, builder, heur); err != nil {
		panic(err)
	}

	log.Info().
		Int("index_dimension", index.Dimension()).
		Bool("offline_embedder", appCfg.OfflineEmbedder).
		Bool("catalog_enabled", appCfg.CatalogEnabled).
		Msg("retailmate core wired")
}
