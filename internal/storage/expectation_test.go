package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basicdb/basicdb-go/internal/model"
)

func TestEvaluateExpectation(t *testing.T) {
	attrs := model.Attributes{
		"single": model.NewValueSet("v1"),
		"multi":  model.NewValueSet("v1", "v2"),
	}

	testCases := []struct {
		name        string
		exp         model.Expectation
		wantKind    string
		wantStatus  int
		wantMessage string
	}{
		{
			name: "not exists holds on absent attribute",
			exp:  model.ExpectedExists("missing", false),
		},
		{
			name:        "not exists fails on present attribute",
			exp:         model.ExpectedExists("single", false),
			wantKind:    "ConditionalCheckFailed",
			wantStatus:  409,
			wantMessage: "Conditional check failed: Attribute (single) value exists",
		},
		{
			name: "exists holds on present attribute",
			exp:  model.ExpectedExists("single", true),
		},
		{
			name: "exists holds on multivalued attribute",
			exp:  model.ExpectedExists("multi", true),
		},
		{
			name:        "exists fails on absent attribute",
			exp:         model.ExpectedExists("missing", true),
			wantKind:    "ConditionalCheckFailed",
			wantStatus:  409,
			wantMessage: "Conditional check failed: Attribute (missing) does not exist",
		},
		{
			name: "value matches",
			exp:  model.ExpectedValue("single", "v1"),
		},
		{
			name:        "value expectation on absent attribute",
			exp:         model.ExpectedValue("missing", "v1"),
			wantKind:    "AttributeDoesNotExist",
			wantStatus:  404,
			wantMessage: "Attribute (missing) does not exist",
		},
		{
			name:       "value expectation on multivalued attribute",
			exp:        model.ExpectedValue("multi", "v1"),
			wantKind:   "MultiValuedAttribute",
			wantStatus: 409,
		},
		{
			name:        "wrong value",
			exp:         model.ExpectedValue("single", "v2"),
			wantKind:    "ConditionalCheckFailed",
			wantStatus:  409,
			wantMessage: "Conditional check failed. Attribute (single) value is (v1) but was expected (v2)",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := EvaluateExpectation(attrs, tc.exp)
			if tc.wantKind == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			apiErr, ok := model.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tc.wantKind, apiErr.Kind)
			assert.Equal(t, tc.wantStatus, apiErr.Status)
			if tc.wantMessage != "" {
				assert.Equal(t, tc.wantMessage, apiErr.Message)
			}
		})
	}
}
