/*
Copyright 2025 Sniperthink Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package apierror_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/sniperthink/chatcore/internal/apierror"
	"github.com/stretchr/testify/assert"
)

func TestNewAPIError(t *testing.T) {
	details := "Some internal error details"
	apiErr := apierror.NewAPIError(apierror.ErrInternalServer, "Something went wrong", details)

	assert.Equal(t, apierror.ErrInternalServer, apiErr.Code)
	assert.Equal(t, "Something went wrong", apiErr.Message)
	assert.Equal(t, details, apiErr.Details)
	assert.Equal(t, "INTERNAL_SERVER_ERROR: Something went wrong", apiErr.Error())
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "NotFound Error",
			err:      apierror.NewAPIError(apierror.ErrNotFound, "Resource not found", nil),
			expected: http.StatusNotFound,
		},
		{
			name:     "Duplicate Admission Rejection",
			err:      apierror.NewAPIError(apierror.ErrDuplicate, "Duplicate message", nil),
			expected: http.StatusConflict,
		},
		{
			name:     "Insufficient Credit Admission Rejection",
			err:      apierror.NewAPIError(apierror.ErrInsufficientCredit, "Out of credits", nil),
			expected: http.StatusPaymentRequired,
		},
		{
			name:     "Queue Full Admission Rejection",
			err:      apierror.NewAPIError(apierror.ErrQueueFull, "Queue at capacity", nil),
			expected: http.StatusTooManyRequests,
		},
		{
			name:     "Transient Store Failure",
			err:      apierror.NewAPIError(apierror.ErrTransient, "Store unreachable", nil),
			expected: http.StatusServiceUnavailable,
		},
		{
			name:     "InvalidInput Error",
			err:      apierror.NewAPIError(apierror.ErrInvalidInput, "Invalid input", nil),
			expected: http.StatusBadRequest,
		},
		{
			name:     "Plain Error Defaults To Internal",
			err:      errors.New("anything else"),
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, apierror.MapErrorToHTTPStatus(tt.err))
		})
	}
}
