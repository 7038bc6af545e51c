package dto

import (
	"html"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// documentIDRe matches national ID and passport numbers such as 12345678Z or X-1234567-L.
var documentIDRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]*$`)

var customRules = map[string]validator.Func{
	"document_id": isDocumentID,
	"image_url":   isImageURL,
}

func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	for tag, fn := range customRules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	v.RegisterTagNameFunc(wireName)
}

func isDocumentID(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return documentIDRe.MatchString(s) && strings.ContainsAny(s, "0123456789")
}

// isImageURL accepts absolute http(s) URLs. Presence is left to "required".
func isImageURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// wireName reports fields by their json or form name so error details match the request.
func wireName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// SanitizeStruct trims every string and *string field of the struct v points
// to and HTML-escapes them, except fields tagged `sanitize:"-"` which are only trimmed.
func SanitizeStruct(v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return
	}
	elem := rv.Elem()
	for i := range elem.NumField() {
		field := elem.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Pointer {
			if field.IsNil() {
				continue
			}
			field = field.Elem()
		}
		if field.Kind() != reflect.String {
			continue
		}
		clean := strings.TrimSpace(field.String())
		if elem.Type().Field(i).Tag.Get("sanitize") != "-" {
			clean = html.EscapeString(clean)
		}
		field.SetString(clean)
	}
}
