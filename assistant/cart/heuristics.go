package cart

import (
	"fmt"

	"github.com/spf13/viper"
)

// Heuristics are the tunable suggestion rules. The discount rates and the
// free-shipping threshold are illustrative retail defaults, kept as data so
// they can be adjusted without touching the engine.
type Heuristics struct {
	// Complements maps a cart category to search keywords for items that
	// go well with it.
	Complements map[string][]string `mapstructure:"complements"`

	FreeShippingThreshold  float64 `mapstructure:"free_shipping_threshold"`
	QuantityDiscountFloor  float64 `mapstructure:"quantity_discount_floor"`
	BundleDiscountRate     float64 `mapstructure:"bundle_discount_rate"`
	SecondUnitDiscountRate float64 `mapstructure:"second_unit_discount_rate"`
}

// DefaultHeuristics returns the built-in rule set.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		Complements: map[string][]string{
			"electronics": {"laptop bag", "mouse", "keyboard", "charger"},
			"clothing":    {"shoes", "accessories", "belt"},
			"kitchen":     {"utensils", "storage", "cleaning"},
			"home":        {"decor", "lighting", "organization"},
		},
		FreeShippingThreshold:  50,
		QuantityDiscountFloor:  20,
		BundleDiscountRate:     0.10,
		SecondUnitDiscountRate: 0.15,
	}
}

// LoadHeuristics reads a YAML rule file over the defaults; keys absent from
// the file keep their default values.
func LoadHeuristics(path string) (Heuristics, error) {
	h := DefaultHeuristics()
	if path == "" {
		return h, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("free_shipping_threshold", h.FreeShippingThreshold)
	v.SetDefault("quantity_discount_floor", h.QuantityDiscountFloor)
	v.SetDefault("bundle_discount_rate", h.BundleDiscountRate)
	v.SetDefault("second_unit_discount_rate", h.SecondUnitDiscountRate)

	if err := v.ReadInConfig(); err != nil {
		return Heuristics{}, fmt.Errorf("read heuristics file: %w", err)
	}

	loaded := Heuristics{Complements: h.Complements}
	if err := v.Unmarshal(&loaded); err != nil {
		return Heuristics{}, fmt.Errorf("unmarshal heuristics: %w", err)
	}
	if len(loaded.Complements) == 0 {
		loaded.Complements = h.Complements
	}
	return loaded, nil
}
