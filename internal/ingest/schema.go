package ingest

import (
	"github.com/invopop/jsonschema"

	"github.com/TobiSchelling/datalens/internal/dataset"
)

// Schema describes the accepted record shape. Every property is optional
// and unknown properties are allowed; it documents, it does not validate.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&dataset.Record{})
	schema.Title = "datalens record"
	schema.Description = "Upload an array of objects, or a single object, with fields like sector, topic, intensity, region, country."
	return schema
}
