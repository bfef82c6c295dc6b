package kucoin

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyRecord is the stable shape of one /api/v3/currencies entry
type CurrencyRecord struct {
	Currency        string         `json:"currency"`
	Name            string         `json:"name"`
	FullName        string         `json:"fullName"`
	Precision       int64          `json:"precision"`
	Confirms        *int64         `json:"confirms"`
	ContractAddress string         `json:"contractAddress"`
	IsMarginEnabled bool           `json:"isMarginEnabled"`
	IsDebitEnabled  bool           `json:"isDebitEnabled"`
	Chains          []ChainRecord  `json:"chains"`
	Raw             map[string]any `json:"raw"`
}

// ChainRecord is one deposit/withdrawal network of a currency
type ChainRecord struct {
	ChainName         string         `json:"chainName"`
	ChainID           string         `json:"chainId"`
	WithdrawalMinSize float64        `json:"withdrawalMinSize"`
	DepositMinSize    float64        `json:"depositMinSize"`
	WithdrawFeeRate   float64        `json:"withdrawFeeRate"`
	WithdrawalMinFee  float64        `json:"withdrawalMinFee"`
	IsWithdrawEnabled bool           `json:"isWithdrawEnabled"`
	IsDepositEnabled  bool           `json:"isDepositEnabled"`
	Confirms          int64          `json:"confirms"`
	PreConfirms       int64          `json:"preConfirms"`
	ContractAddress   string         `json:"contractAddress"`
	WithdrawPrecision int64          `json:"withdrawPrecision"`
	MaxWithdraw       *float64       `json:"maxWithdraw"`
	MaxDeposit        *float64       `json:"maxDeposit"`
	NeedTag           bool           `json:"needTag"`
	Raw               map[string]any `json:"raw"`
}

// SubAccountRecord is the stable shape of one /api/v2/sub/user item
type SubAccountRecord struct {
	UserID    string         `json:"userId"`
	UID       int64          `json:"uid"`
	SubName   string         `json:"subName"`
	Status    int64          `json:"status"`
	Type      int64          `json:"type"`
	Access    string         `json:"access"`
	CreatedAt int64          `json:"createdAt"`
	Remarks   string         `json:"remarks"`
	Raw       map[string]any `json:"raw"`
}

// CurrencyList wraps reshaped currencies
type CurrencyList struct {
	List []CurrencyRecord `json:"list"`
}

// SubAccountPage is one reshaped page of sub-accounts
type SubAccountPage struct {
	List        []SubAccountRecord `json:"list"`
	CurrentPage int64              `json:"currentPage"`
	PageSize    int64              `json:"pageSize"`
	TotalNum    int64              `json:"totalNum"`
	TotalPage   int64              `json:"totalPage"`
}

// CurrencyPrice is one fiat price quote
type CurrencyPrice struct {
	Currency string   `json:"currency"`
	Price    *float64 `json:"price"`
}

// PriceList wraps reshaped fiat prices
type PriceList struct {
	Prices []CurrencyPrice `json:"prices"`
}

// reshapeCurrencies accepts either a list of currencies or a single currency object
func reshapeCurrencies(data any) CurrencyList {
	out := CurrencyList{List: []CurrencyRecord{}}
	switch d := data.(type) {
	case []any:
		for _, item := range d {
			if obj, ok := item.(map[string]any); ok {
				out.List = append(out.List, toCurrencyRecord(obj))
			}
		}
	case map[string]any:
		out.List = append(out.List, toCurrencyRecord(d))
	}
	return out
}

func toCurrencyRecord(obj map[string]any) CurrencyRecord {
	rec := CurrencyRecord{
		Currency:        toString(obj["currency"]),
		Name:            toString(obj["name"]),
		FullName:        toString(obj["fullName"]),
		Precision:       toInt(obj["precision"]),
		Confirms:        toOptionalInt(obj["confirms"]),
		ContractAddress: toString(obj["contractAddress"]),
		IsMarginEnabled: toBool(obj["isMarginEnabled"]),
		IsDebitEnabled:  toBool(obj["isDebitEnabled"]),
		Chains:          []ChainRecord{},
		Raw:             obj,
	}
	if chains, ok := obj["chains"].([]any); ok {
		for _, c := range chains {
			if chain, ok := c.(map[string]any); ok {
				rec.Chains = append(rec.Chains, toChainRecord(chain))
			}
		}
	}
	return rec
}

func toChainRecord(obj map[string]any) ChainRecord {
	return ChainRecord{
		ChainName:         toString(obj["chainName"]),
		ChainID:           toString(obj["chainId"]),
		WithdrawalMinSize: toFloat(obj["withdrawalMinSize"]),
		DepositMinSize:    toFloat(obj["depositMinSize"]),
		WithdrawFeeRate:   toFloat(obj["withdrawFeeRate"]),
		WithdrawalMinFee:  toFloat(obj["withdrawalMinFee"]),
		IsWithdrawEnabled: toBool(obj["isWithdrawEnabled"]),
		IsDepositEnabled:  toBool(obj["isDepositEnabled"]),
		Confirms:          toInt(obj["confirms"]),
		PreConfirms:       toInt(obj["preConfirms"]),
		ContractAddress:   toString(obj["contractAddress"]),
		WithdrawPrecision: toInt(obj["withdrawPrecision"]),
		MaxWithdraw:       toOptionalFloat(obj["maxWithdraw"]),
		MaxDeposit:        toOptionalFloat(obj["maxDeposit"]),
		NeedTag:           toBool(obj["needTag"]),
		Raw:               obj,
	}
}

func reshapeSubAccounts(data any) SubAccountPage {
	page := SubAccountPage{List: []SubAccountRecord{}}
	obj, ok := data.(map[string]any)
	if !ok {
		return page
	}
	page.CurrentPage = toInt(obj["currentPage"])
	page.PageSize = toInt(obj["pageSize"])
	page.TotalNum = toInt(obj["totalNum"])
	page.TotalPage = toInt(obj["totalPage"])

	if items, ok := obj["items"].([]any); ok {
		for _, item := range items {
			if sub, ok := item.(map[string]any); ok {
				page.List = append(page.List, SubAccountRecord{
					UserID:    toString(sub["userId"]),
					UID:       toInt(sub["uid"]),
					SubName:   toString(sub["subName"]),
					Status:    toInt(sub["status"]),
					Type:      toInt(sub["type"]),
					Access:    toString(sub["access"]),
					CreatedAt: toInt(sub["createdAt"]),
					Remarks:   toString(sub["remarks"]),
					Raw:       sub,
				})
			}
		}
	}
	return page
}

// reshapePrices turns {"BTC":"30000.1",...} into a list sorted by currency
func reshapePrices(data any) PriceList {
	out := PriceList{Prices: []CurrencyPrice{}}
	obj, ok := data.(map[string]any)
	if !ok {
		return out
	}
	for _, currency := range sortedKeys(obj) {
		out.Prices = append(out.Prices, CurrencyPrice{Currency: currency, Price: toOptionalFloat(obj[currency])})
	}
	return out
}

// Coercion helpers. Exchange payloads mix numbers, numeric strings and nulls.

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}

func toFloat(v any) float64 {
	d, _ := toDecimal(v)
	return d.InexactFloat64()
}

func toOptionalFloat(v any) *float64 {
	d, ok := toDecimal(v)
	if !ok {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

func toInt(v any) int64 {
	d, _ := toDecimal(v)
	return d.IntPart()
}

func toOptionalInt(v any) *int64 {
	d, ok := toDecimal(v)
	if !ok {
		return nil
	}
	i := d.IntPart()
	return &i
}

func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true") || b == "1"
	case float64:
		return b == 1
	}
	return false
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return decimal.NewFromFloat(s).String()
	}
	return fmt.Sprint(v)
}
