/*
Package validation classifies satellite and ancillary data products by their
path and filters them by region and time.

Every data type is described by a Definition: a structural family, a
pattern over the slash separated path, optional companion file groups, a
time layout for the embedded acquisition time and a rule to derive the
item's footprint. Adding a product type is a data change:

	registry, err := validation.NewDefaultRegistry(provider, variables.Default())
	if err != nil {
		return err
	}
	dataType := registry.GetValidType("/data/MCD43A1.A2017250.h17v05.006.2017261201257.hdf")

Classification walks the validators in registration order and returns the
first match. MatchingTypes lists every match for callers that need to detect
overlapping patterns.

IsValidFor distinguishes "not valid" (false) from "cannot tell" (an error
with code FILTER_UNSUPPORTED); SupportsSpatioTemporalFilter answers the
latter question up front. Regions are go-geom geometries in lon/lat; a nil or
empty region does not constrain the result.
*/
package validation
