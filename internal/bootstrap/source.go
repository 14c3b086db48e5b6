package bootstrap

import (
	"fmt"

	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/pkg/config"
)

// SourceFromConfig builds the single configured listing source.
func SourceFromConfig(cfg *config.Config) (entity.Source, error) {
	src := entity.Source{
		Website:       cfg.SourceWebsite,
		SearchURL:     cfg.SearchURL,
		APIKey:        cfg.SearchAPIKey,
		DetailBaseURL: cfg.DetailBaseURL,
		City:          cfg.SearchCity,
		PropertyType:  cfg.SearchPropertyType,
		OperationParams: map[entity.OperationType]string{
			entity.OperationSale: cfg.SaleParam,
			entity.OperationRent: cfg.RentParam,
		},
	}
	for _, name := range cfg.OperationList() {
		op, err := entity.ParseOperationType(name)
		if err != nil {
			return entity.Source{}, fmt.Errorf("SEARCH_OPERATIONS: %w", err)
		}
		src.Operations = append(src.Operations, op)
	}
	if len(src.Operations) == 0 {
		return entity.Source{}, fmt.Errorf("SEARCH_OPERATIONS must name at least one of sale, rent")
	}
	if src.Website == "" || src.SearchURL == "" {
		return entity.Source{}, fmt.Errorf("SOURCE_WEBSITE and SEARCH_URL are required")
	}
	return src, nil
}
