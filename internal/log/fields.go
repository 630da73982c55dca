package log

// Field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldSessionID  = "session_id"
	FieldView       = "view"
	FieldAction     = "action"
	FieldSinks      = "sinks"
	FieldBookPath   = "book_path"
	FieldExpenses   = "expenses"
	FieldIncome     = "income"
	FieldMonth      = "month"
)

// Component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentWebSocket = "websocket"
	ComponentDashboard = "dashboard"
	ComponentSession   = "session"
	ComponentGnuCash   = "gnucash"
	ComponentAMQP      = "amqp"
	ComponentCache     = "cache"
	ComponentCLI       = "cli"
	ComponentWorker    = "worker"
)

// Operation names
const (
	OpRender   = "render"
	OpApply    = "apply"
	OpLoad     = "load"
	OpReload   = "reload"
	OpCreate   = "create"
	OpMigrate  = "migrate"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields builds attribute lists for slog.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithSession adds the dashboard session and the view it acts on.
func (f LogFields) WithSession(sessionID, view string) LogFields {
	f[FieldSessionID] = sessionID
	if view != "" {
		f[FieldView] = view
	}
	return f
}

func (f LogFields) WithHTTPRequest(method, path, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	return f
}

// ToSlice flattens the fields into slog key/value pairs.
func (f LogFields) ToSlice() []any {
	out := make([]any, 0, len(f)*2)
	for k, v := range f {
		if k == FieldComponent {
			continue
		}
		out = append(out, k, v)
	}
	return out
}
