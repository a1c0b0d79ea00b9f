package llmjson

import "errors"

// Decode runs the full pipeline for one model response: Extract, then
// Validate against schema. When every extraction strategy fails with
// UNPARSEABLE and schema.Salvage is set, the item motifs are salvaged from
// raw instead, and a survivor shortfall on that path is reported as
// SALVAGE_INSUFFICIENT. Missing braces are returned as they are.
func Decode(raw string, schema Schema, opts ...Option) (*Result, error) {
	ext, err := Extract(raw, opts...)
	if err == nil {
		res, err := Validate(ext.Object, schema)
		if err != nil {
			return nil, err
		}
		res.Strategy = ext.Strategy
		return res, nil
	}

	if schema.Salvage == nil || !IsReason(err, ReasonUnparseable) {
		return nil, err
	}

	parsed, serr := Salvage(raw, schema.Salvage)
	if serr != nil {
		return nil, serr
	}

	res, verr := Validate(parsed, schema)
	if verr != nil {
		var f *Failure
		if errors.As(verr, &f) {
			return nil, &Failure{
				Reason:   ReasonSalvageInsufficient,
				Valid:    f.Valid,
				Required: f.Required,
				Dropped:  f.Dropped,
			}
		}
		return nil, verr
	}
	res.Salvaged = true
	return res, nil
}
