package config

import (
	"github.com/invopop/jsonschema"

	"github.com/felipeek/gimmesh/filter"
)

// FilterAttributeSchemas describes the attributes each filter mode accepts.
var FilterAttributeSchemas = map[filter.Mode]*jsonschema.Schema{
	filter.RecursiveFilter: jsonschema.Reflect(&filter.Recursive{}),
	filter.DistanceFilter:  jsonschema.Reflect(&filter.Distance{}),
	filter.CurvatureFilter: jsonschema.Reflect(&filter.Curvature{}),
	filter.NoiseGenerator:  jsonschema.Reflect(&filter.Noise{}),
}

// JobSchema returns the JSON schema of a job file.
func JobSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&Job{})
}
