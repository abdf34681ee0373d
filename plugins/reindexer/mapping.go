package reindexer

// indexMapping is the body every world index is created with.
const indexMapping = `{
	"settings": {
		"number_of_shards": 1,
		"number_of_replicas": 1
	},
	"mappings": {
		"dynamic": "strict",
		"properties": {
			"code": {"type": "keyword"},
			"name": {
				"type": "text",
				"fields": {"keyword": {"type": "keyword", "ignore_above": 256}}
			},
			"continent": {"type": "keyword"},
			"region": {"type": "keyword"},
			"surface_area": {"type": "float"},
			"indep_year": {"type": "integer"},
			"population": {"type": "long"},
			"life_expectancy": {"type": "float"},
			"gnp": {"type": "float"},
			"gnp_old": {"type": "float"},
			"local_name": {"type": "text"},
			"government_form": {"type": "keyword"},
			"head_of_state": {"type": "text"},
			"capital": {"type": "integer"},
			"code2": {"type": "keyword"},
			"cities": {
				"type": "nested",
				"properties": {
					"id": {"type": "integer"},
					"name": {
						"type": "text",
						"fields": {"keyword": {"type": "keyword", "ignore_above": 256}}
					},
					"district": {"type": "keyword"},
					"population": {"type": "long"}
				}
			},
			"languages": {
				"type": "nested",
				"properties": {
					"language": {"type": "keyword"},
					"is_official": {"type": "boolean"},
					"percentage": {"type": "float"}
				}
			}
		}
	}
}`
