package openapi

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"

	"github.com/wms-platform/slotting-simulator/pkg/errors"
	"github.com/wms-platform/slotting-simulator/pkg/middleware"
)

// Validator validates HTTP requests against an OpenAPI specification.
type Validator struct {
	doc    *openapi3.T
	router routers.Router
}

// NewValidator creates a new OpenAPI validator from a specification file.
func NewValidator(specPath string) (*Validator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI spec from %s: %w", specPath, err)
	}
	return newValidator(doc)
}

// NewValidatorFromBytes creates a new OpenAPI validator from specification bytes.
func NewValidatorFromBytes(specBytes []byte) (*Validator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(specBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI spec: %w", err)
	}
	return newValidator(doc)
}

func newValidator(doc *openapi3.T) (*Validator, error) {
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	return &Validator{doc: doc, router: router}, nil
}

// ValidateRequest validates an HTTP request against the OpenAPI
// specification. Requests for undocumented routes return routers.ErrPathNotFound.
func (v *Validator) ValidateRequest(req *http.Request) error {
	route, pathParams, err := v.router.FindRoute(req)
	if err != nil {
		return err
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: pathParams,
		Route:      route,
		Options: &openapi3filter.Options{
			MultiError:         true,
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	}

	if err := openapi3filter.ValidateRequest(req.Context(), input); err != nil {
		return fmt.Errorf("request validation failed: %w", err)
	}
	return nil
}

// OperationID returns the operation ID for a given request.
func (v *Validator) OperationID(req *http.Request) (string, error) {
	route, _, err := v.router.FindRoute(req)
	if err != nil {
		return "", fmt.Errorf("failed to find route: %w", err)
	}
	return route.Operation.OperationID, nil
}

// Paths returns all paths defined in the OpenAPI specification, sorted.
func (v *Validator) Paths() []string {
	if v.doc.Paths == nil {
		return nil
	}

	paths := make([]string, 0, v.doc.Paths.Len())
	for path := range v.doc.Paths.Map() {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// RequestValidator rejects requests that violate the contract with 400.
// Routes the contract does not describe are passed through.
func RequestValidator(v *Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := v.ValidateRequest(c.Request)
		if err == nil || isUnknownRoute(err) {
			c.Next()
			return
		}

		middleware.AbortWithAppError(c, errors.ErrValidationWithFields(
			"request does not match the API contract", contractViolations(err),
		).Wrap(err))
	}
}

func isUnknownRoute(err error) bool {
	return stderrors.Is(err, routers.ErrPathNotFound) || stderrors.Is(err, routers.ErrMethodNotAllowed)
}

// contractViolations flattens kin-openapi errors into a field map keyed by
// parameter name, or "body" for request body errors.
func contractViolations(err error) map[string]string {
	fields := make(map[string]string)

	var multi openapi3.MultiError
	if stderrors.As(err, &multi) {
		for _, e := range multi {
			addViolation(fields, e)
		}
	} else {
		addViolation(fields, err)
	}
	return fields
}

func addViolation(fields map[string]string, err error) {
	var paramErr *openapi3filter.RequestError
	if !stderrors.As(err, &paramErr) {
		fields["request"] = err.Error()
		return
	}

	key := "body"
	if paramErr.Parameter != nil {
		key = paramErr.Parameter.Name
	}
	reason := paramErr.Reason
	if reason == "" && paramErr.Err != nil {
		reason = paramErr.Err.Error()
	}
	if reason == "" {
		reason = "is invalid"
	}
	fields[key] = reason
}
