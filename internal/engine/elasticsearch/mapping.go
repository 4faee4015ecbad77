package elasticsearch

// Default index names for the crawled catalog.
const (
	DefaultProductsIndex = "store_products"
	DefaultSessionsIndex = "store_sessions"
)

// exactSuffix names the subfield label filters compare whole values on. It
// is lower-cased and whitespace-collapsed by the label normalizer.
const exactSuffix = ".exact"

const labelAnalysis = `{
      "char_filter": {
        "collapse_whitespace": { "type": "pattern_replace", "pattern": "\\s+", "replacement": " " }
      },
      "normalizer": {
        "label": { "type": "custom", "char_filter": ["collapse_whitespace"], "filter": ["lowercase", "trim"] }
      }
    }`

// Labels are analyzed text with an exact ".keyword" subfield, which is what
// facets and exact session lookups aggregate and filter on. Filterable labels
// add an ".exact" subfield.
const productsMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": ` + labelAnalysis + `
  },
  "mappings": {
    "properties": {
      "about":       { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "brand":       { "type": "text", "fields": { "keyword": { "type": "keyword" }, "exact": { "type": "keyword", "normalizer": "label" } } },
      "care":        { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "details":     { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "gender":      { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "id":          { "type": "keyword" },
      "images":      { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 512 } } },
      "kind":        { "type": "text", "fields": { "keyword": { "type": "keyword" }, "exact": { "type": "keyword", "normalizer": "label" } } },
      "link":        { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 512 } } },
      "name":        { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "price": {
        "properties": {
          "outlet": { "type": "float" },
          "retail": { "type": "float" }
        }
      },
      "sessionid":   { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "sessionname": { "type": "text", "fields": { "keyword": { "type": "keyword" }, "exact": { "type": "keyword", "normalizer": "label" } } },
      "storename":   { "type": "text", "fields": { "keyword": { "type": "keyword" } } }
    }
  }
}`

const sessionsMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": ` + labelAnalysis + `
  },
  "mappings": {
    "properties": {
      "gender":    { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "id":        { "type": "keyword" },
      "image":     { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 512 } } },
      "name":      { "type": "text", "fields": { "keyword": { "type": "keyword" }, "exact": { "type": "keyword", "normalizer": "label" } } },
      "pos":       { "type": "long" },
      "storename": { "type": "text", "fields": { "keyword": { "type": "keyword" } } }
    }
  }
}`
