package graph

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/shopspring/decimal"
)

// Record extraction helpers. Neo4j returns loosely typed values; missing or
// null fields fall back to zero values.

func stringFromRecord(record *neo4j.Record, key string) string {
	return stringFromRecordDefault(record, key, "")
}

func stringFromRecordDefault(record *neo4j.Record, key, defaultValue string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return defaultValue
	}
	if str, ok := val.(string); ok {
		return str
	}
	return defaultValue
}

func intFromRecord(record *neo4j.Record, key string) int {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func boolFromRecord(record *neo4j.Record, key string) bool {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return false
	}
	if b, ok := val.(bool); ok {
		return b
	}
	return false
}

func decimalFromRecord(record *neo4j.Record, key string) decimal.Decimal {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return decimal.Zero
	}
	switch v := val.(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int64:
		return decimal.NewFromInt(v)
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.Zero
}

func stringSliceFromRecord(record *neo4j.Record, key string) []string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return nil
	}
	slice, ok := val.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(slice))
	for _, v := range slice {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	return out
}
