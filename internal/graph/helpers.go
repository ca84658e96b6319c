package graph

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Helper functions for pulling typed values out of Neo4j records.

func getString(record *neo4j.Record, key, defaultValue string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return defaultValue
	}
	if s, ok := val.(string); ok {
		return s
	}
	return defaultValue
}

func getInt64(record *neo4j.Record, key string, defaultValue int64) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return defaultValue
	}
	if i, ok := val.(int64); ok {
		return i
	}
	return defaultValue
}

func getStringSlice(record *neo4j.Record, key string) []string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return []string{}
	}
	list, ok := val.([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
