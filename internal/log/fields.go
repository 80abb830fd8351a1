package log

// Field names for structured logging.
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldOperation   = "operation"
	FieldUserID      = "user_id"
	FieldTxID        = "transaction_id"
	FieldTxType      = "type"
	FieldAmountCents = "amount_cents"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldCount       = "count"
)

const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentAuth      = "auth"
	ComponentLedger    = "ledger"
	ComponentExport    = "export"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentCLI       = "cli"
)

const (
	OpSignUp   = "sign_up"
	OpSignIn   = "sign_in"
	OpSignOut  = "sign_out"
	OpReload   = "reload"
	OpInsert   = "insert"
	OpRemove   = "remove"
	OpExport   = "export"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

const (
	ErrorTypeValidation      = "validation_error"
	ErrorTypeInvalidArgument = "invalid_argument"
	ErrorTypeAuth            = "auth_error"
	ErrorTypeRemote          = "remote_error"
	ErrorTypeInternal        = "internal_error"
)

// Fields is a small builder for slog key/value pairs.
type Fields map[string]any

func NewFields() Fields {
	return make(Fields)
}

func (f Fields) WithComponent(component string) Fields {
	f[FieldComponent] = component
	return f
}

func (f Fields) WithRequestID(id string) Fields {
	if id != "" {
		f[FieldRequestID] = id
	}
	return f
}

func (f Fields) WithClientIP(ip string) Fields {
	f[FieldClientIP] = ip
	return f
}

func (f Fields) WithError(err error) Fields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f Fields) WithOperation(op string) Fields {
	f[FieldOperation] = op
	return f
}

func (f Fields) WithUser(userID string) Fields {
	if userID != "" {
		f[FieldUserID] = userID
	}
	return f
}

// WithTransaction adds the identifying fields of a ledger row.
func (f Fields) WithTransaction(id, kind string, amountCents int64) Fields {
	f[FieldTxID] = id
	f[FieldTxType] = kind
	f[FieldAmountCents] = amountCents
	return f
}

func (f Fields) WithPeriod(year, month int) Fields {
	f[FieldYear] = year
	if month != 0 {
		f[FieldMonth] = month
	}
	return f
}

func (f Fields) WithHTTPRequest(method, path, query, userAgent string) Fields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f Fields) WithHTTPResponse(status int, durationMs int64) Fields {
	f[FieldStatusCode] = status
	f[FieldDuration] = durationMs
	f[FieldSuccess] = status < 400
	return f
}

// ToSlice flattens the fields for slog.
func (f Fields) ToSlice() []any {
	out := make([]any, 0, len(f)*2)
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}
