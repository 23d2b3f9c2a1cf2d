package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Intent represents the structured search intent extracted from a query
type Intent struct {
	District        *string `json:"district"`
	StationName     *string `json:"station_name"`
	UnitType        *string `json:"unit_type"`
	PriceCeiling    *int    `json:"price_ceiling"`
	ProximityRadius *int    `json:"proximity_radius"`
}

// IsEmpty reports whether no field was extracted
func (i Intent) IsEmpty() bool {
	return i.District == nil && i.StationName == nil && i.UnitType == nil &&
		i.PriceCeiling == nil && i.ProximityRadius == nil
}

// Value implements driver.Valuer so an intent can be stored as JSONB
func (i Intent) Value() (driver.Value, error) {
	return json.Marshal(i)
}

// Scan implements sql.Scanner interface
func (i *Intent) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*i = Intent{}
		return nil
	case []byte:
		return json.Unmarshal(v, i)
	case string:
		return json.Unmarshal([]byte(v), i)
	default:
		return fmt.Errorf("cannot scan %T into Intent", value)
	}
}
