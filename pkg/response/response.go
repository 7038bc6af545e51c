package response

import (
	"errors"
	"net/http"
	"time"

	"food-wallet-service/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const ctxRequestID = "request_id"

// SuccessResponse is the success envelope.
type SuccessResponse struct {
	Data      any    `json:"data"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the error envelope. Fields is only set for validation failures.
type ErrorResponse struct {
	ErrorCode string                `json:"error_code"`
	Message   string                `json:"message"`
	Fields    []apperror.FieldError `json:"fields,omitempty"`
	RequestID string                `json:"request_id"`
	Timestamp string                `json:"timestamp"`
}

type Page struct {
	Items    any   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

func OK(c *gin.Context, data any) {
	write(c, http.StatusOK, data)
}

func Created(c *gin.Context, data any) {
	write(c, http.StatusCreated, data)
}

// Paginated sends one page of a listing.
func Paginated(c *gin.Context, items any, total int64, page, pageSize int) {
	OK(c, Page{Items: items, Total: total, Page: page, PageSize: pageSize})
}

func write(c *gin.Context, status int, data any) {
	c.JSON(status, SuccessResponse{Data: data, RequestID: requestID(c), Timestamp: stamp()})
}

// Error renders err. The first *apperror.AppError in the chain picks the
// status and code; anything else becomes an opaque 500.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.New("SYS_000", "Internal server error", http.StatusInternalServerError)
	}
	c.JSON(appErr.HTTPStatus, ErrorResponse{
		ErrorCode: appErr.Code,
		Message:   appErr.Message,
		Fields:    appErr.Fields,
		RequestID: requestID(c),
		Timestamp: stamp(),
	})
}

// AbortError writes the error envelope and stops the handler chain.
func AbortError(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

// BindError renders a failure from gin's ShouldBind* family.
func BindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		Error(c, apperror.ErrPayloadTooLarge())
		return
	}

	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		fields := make([]apperror.FieldError, 0, len(invalid))
		for _, fe := range invalid {
			fields = append(fields, apperror.FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
		}
		Error(c, apperror.InvalidFields(fields))
		return
	}

	Error(c, apperror.Validation("Malformed request: "+err.Error()))
}

func stamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func requestID(c *gin.Context) string {
	if id := c.GetString(ctxRequestID); id != "" {
		return id
	}
	return uuid.NewString()
}
