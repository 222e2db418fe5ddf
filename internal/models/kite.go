package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexFloat decodes a JSON number that may arrive as a number, a numeric
// string, null or garbage. Anything unparseable becomes 0.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = FlexFloat(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		num, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexFloat(num)
		return nil
	}
	*f = 0
	return nil
}

// Float returns the value as a float64.
func (f FlexFloat) Float() float64 {
	return float64(f)
}

// KiteHolding is one row of the Kite /portfolio/holdings response.
type KiteHolding struct {
	TradingSymbol       string    `json:"tradingsymbol"`
	Exchange            string    `json:"exchange"`
	InstrumentToken     FlexFloat `json:"instrument_token"`
	ISIN                string    `json:"isin"`
	Product             string    `json:"product"`
	Quantity            FlexFloat `json:"quantity"`
	T1Quantity          FlexFloat `json:"t1_quantity"`
	AveragePrice        FlexFloat `json:"average_price"`
	LastPrice           FlexFloat `json:"last_price"`
	PnL                 FlexFloat `json:"pnl"`
	DayChange           FlexFloat `json:"day_change"`
	DayChangePercentage FlexFloat `json:"day_change_percentage"`
	CollateralQuantity  FlexFloat `json:"collateral_quantity"`
	CollateralType      *string   `json:"collateral_type"`
}

// UnmarshalJSON applies Kite's documented defaults for absent fields.
func (h *KiteHolding) UnmarshalJSON(data []byte) error {
	type alias KiteHolding
	raw := alias{Exchange: "NSE", Product: "CNC"}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*h = KiteHolding(raw)
	return nil
}

// KitePosition is one row of the Kite /portfolio/positions response.
type KitePosition struct {
	TradingSymbol     string    `json:"tradingsymbol"`
	Product           string    `json:"product"`
	Exchange          string    `json:"exchange"`
	Quantity          FlexFloat `json:"quantity"`
	OvernightQuantity FlexFloat `json:"overnight_quantity"`
	AveragePrice      FlexFloat `json:"average_price"`
	LastPrice         FlexFloat `json:"last_price"`
	PnL               FlexFloat `json:"pnl"`
}

func (p *KitePosition) UnmarshalJSON(data []byte) error {
	type alias KitePosition
	raw := alias{Exchange: "NSE", Product: "NRML"}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = KitePosition(raw)
	return nil
}

// KitePositions holds both position books. Only Net is used for portfolios.
type KitePositions struct {
	Net []KitePosition `json:"net"`
	Day []KitePosition `json:"day"`
}

// KiteSession is the data of a successful /session/token exchange.
type KiteSession struct {
	AccessToken string `json:"access_token"`
	PublicToken string `json:"public_token,omitempty"`
	UserID      string `json:"user_id,omitempty"`
}
