package orchestration

import (
	"net/url"

	"github.com/oapi-codegen/runtime"
)

// encodeFilter turns a Filter into query parameters using the same
// style-based parameter encoding oapi-codegen generates for deepObject/
// form query parameters, so a hand-written client still matches the
// wire convention a generated one would use.
func encodeFilter(f Filter) (url.Values, error) {
	q := url.Values{}

	if len(f.DeploymentIDs) > 0 {
		if err := addParam(q, "deployment_id", "form", true, f.DeploymentIDs); err != nil {
			return nil, err
		}
	}
	if len(f.FlowRunIDs) > 0 {
		if err := addParam(q, "flow_run_id", "form", true, f.FlowRunIDs); err != nil {
			return nil, err
		}
	}
	if len(f.StateType.Any) > 0 {
		if err := addParam(q, "state_type", "form", true, f.StateType.Any); err != nil {
			return nil, err
		}
	}
	if len(f.StateNames) > 0 {
		if err := addParam(q, "state_name", "form", true, f.StateNames); err != nil {
			return nil, err
		}
	}
	if f.ScheduledStartsBefore != nil {
		if err := addParam(q, "scheduled_starts_before", "form", true, *f.ScheduledStartsBefore); err != nil {
			return nil, err
		}
	}
	if f.ScheduledStartsAfter != nil {
		if err := addParam(q, "scheduled_starts_after", "form", true, *f.ScheduledStartsAfter); err != nil {
			return nil, err
		}
	}
	if f.Limit > 0 {
		if err := addParam(q, "limit", "form", true, f.Limit); err != nil {
			return nil, err
		}
	}
	return q, nil
}

func addParam(q url.Values, name, style string, explode bool, value any) error {
	values, err := runtime.StyleParamWithLocation(style, explode, name, runtime.ParamLocationQuery, value)
	if err != nil {
		return err
	}
	parsed, err := url.ParseQuery(values)
	if err != nil {
		return err
	}
	for k, vs := range parsed {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	return nil
}
