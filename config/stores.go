package config

import (
	"encoding/json"
	"fmt"
	"os"

	perrors "printerpricewatch/pkg/errors"
)

// Supported store currencies
const (
	CurrencyAUD = "AUD"
	CurrencyUSD = "USD"
)

// PrinterEntry describes a single product page to check on a store
type PrinterEntry struct {
	Model    string `json:"model"`
	URL      string `json:"url"`
	Selector string `json:"selector"`
	Enabled  bool   `json:"enabled"`
}

// StoreConfig describes a monitored store and its printer pages
type StoreConfig struct {
	Name     string         `json:"name"`
	Currency string         `json:"currency"`
	Enabled  bool           `json:"enabled"`
	Printers []PrinterEntry `json:"printers"`
}

type storesFile struct {
	Stores []StoreConfig `json:"stores"`
}

// LoadStores reads and validates the store configuration file.
// It returns either a fully valid store list or a configuration error;
// partially valid structures never flow downstream.
func LoadStores(path string) ([]StoreConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, perrors.NewConfiguration(fmt.Sprintf("cannot read stores file %s", path), err)
	}

	var file storesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, perrors.NewConfiguration(fmt.Sprintf("malformed stores file %s", path), err)
	}

	if len(file.Stores) == 0 {
		return nil, perrors.NewConfiguration(fmt.Sprintf("stores file %s contains no stores", path), nil)
	}

	for i, store := range file.Stores {
		if err := validateStore(i, store); err != nil {
			return nil, err
		}
	}

	return file.Stores, nil
}

// validateStore checks a single store entry. Disabled stores are only
// required to carry a name so they can be reported as skipped; enabled
// entries must be complete.
func validateStore(idx int, store StoreConfig) error {
	if store.Name == "" {
		return perrors.NewConfiguration(fmt.Sprintf("store #%d has no name", idx), nil)
	}
	if !store.Enabled {
		return nil
	}

	if store.Currency != CurrencyAUD && store.Currency != CurrencyUSD {
		return perrors.NewConfiguration(
			fmt.Sprintf("store %s has unsupported currency %q", store.Name, store.Currency), nil)
	}

	for _, printer := range store.Printers {
		if !printer.Enabled {
			continue
		}
		if printer.Model == "" {
			return perrors.NewConfiguration(
				fmt.Sprintf("store %s has an enabled printer without a model", store.Name), nil)
		}
		if printer.URL == "" {
			return perrors.NewConfiguration(
				fmt.Sprintf("store %s printer %s has no url", store.Name, printer.Model), nil)
		}
		if printer.Selector == "" {
			return perrors.NewConfiguration(
				fmt.Sprintf("store %s printer %s has no selector", store.Name, printer.Model), nil)
		}
	}

	return nil
}

// EnabledPairs counts the (store, printer) pairs a run will check
func EnabledPairs(stores []StoreConfig) int {
	count := 0
	for _, store := range stores {
		if !store.Enabled {
			continue
		}
		for _, printer := range store.Printers {
			if printer.Enabled {
				count++
			}
		}
	}
	return count
}
