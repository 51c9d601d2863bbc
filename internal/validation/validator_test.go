package validation_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	domainerrors "github.com/neurovault/neurovault-server/internal/errors"
	"github.com/neurovault/neurovault-server/internal/validation"
)

type patientRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Sex      string `json:"sex" validate:"sex"`
	Birthday string `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
}

type segmentationRequest struct {
	Mode        string  `json:"mode" validate:"omitempty,segmode"`
	MinDuration float64 `json:"min_duration" validate:"omitempty,gt=0"`
	Workers     int     `json:"workers" validate:"gte=0,lte=64"`
}

func TestValidateSuccess(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(patientRequest{
		Name:     "Ivanov Ivan",
		Sex:      "M",
		Birthday: "1951-05-02",
	}))
	assert.NoError(t, v.Validate(segmentationRequest{
		Mode:        "grouped",
		MinDuration: 5,
		Workers:     4,
	}))
	// Zero values for optional fields pass.
	assert.NoError(t, v.Validate(segmentationRequest{}))
}

func TestValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       any
		wantField string
	}{
		{
			name:      "missing name",
			req:       patientRequest{Sex: "F"},
			wantField: "name",
		},
		{
			name:      "bad sex code",
			req:       patientRequest{Name: "Test", Sex: "X"},
			wantField: "sex",
		},
		{
			name:      "bad birthday format",
			req:       patientRequest{Name: "Test", Birthday: "02-05-1951"},
			wantField: "birthday",
		},
		{
			name:      "unknown segmentation mode",
			req:       segmentationRequest{Mode: "windows"},
			wantField: "mode",
		},
		{
			name:      "zero minimum duration",
			req:       segmentationRequest{MinDuration: -1},
			wantField: "min_duration",
		},
		{
			name:      "too many workers",
			req:       segmentationRequest{Workers: 1000},
			wantField: "workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			assert.Error(t, err)

			var domainErr *domainerrors.Error
			if assert.True(t, errors.As(err, &domainErr)) {
				assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
				assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
				details, ok := domainErr.Details.(map[string]string)
				if assert.True(t, ok, "details should be a field map") {
					assert.Contains(t, details, tt.wantField)
				}
			}
		})
	}
}

func TestValidateUsesJSONFieldNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(patientRequest{Sex: "M"})
	assert.Error(t, err)

	var domainErr *domainerrors.Error
	if assert.True(t, errors.As(err, &domainErr)) {
		details := domainErr.Details.(map[string]string)
		assert.Contains(t, details, "name")
		assert.NotContains(t, details, "Name")
	}
}
