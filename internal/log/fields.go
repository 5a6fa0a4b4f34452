package log

// Field names shared by every component.
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
	FieldOperation   = "operation"
	FieldAccountID   = "account_id"
	FieldTxID        = "transaction_id"
	FieldAmountCents = "amount_cents"
	FieldKind        = "kind"
	FieldCategory    = "category"
	FieldDescription = "description"
	FieldChoreID     = "chore_id"
	FieldGoalID      = "goal_id"
	FieldMissionID   = "mission_id"
	FieldStatus      = "status"
)

const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentHousehold = "household"
	ComponentAllowance = "allowance"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentContent   = "content"
	ComponentNotify    = "notify"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
)

const (
	OpCreate     = "create"
	OpRead       = "read"
	OpUpdate     = "update"
	OpAppend     = "append"
	OpTransition = "transition"
	OpJournal    = "journal"
	OpPublish    = "publish"
	OpGenerate   = "generate"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// Fields is a small builder for structured log attributes.
type Fields map[string]any

func NewFields() Fields {
	return make(Fields)
}

func (f Fields) WithComponent(component string) Fields {
	f[FieldComponent] = component
	return f
}

func (f Fields) WithRequestID(requestID string) Fields {
	f[FieldRequestID] = requestID
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

// WithTransaction adds the attributes identifying one ledger entry.
func (f Fields) WithTransaction(accountID string, txID int64, amountCents int64, kind, category string) Fields {
	f[FieldAccountID] = accountID
	f[FieldTxID] = txID
	f[FieldAmountCents] = amountCents
	f[FieldKind] = kind
	if category != "" {
		f[FieldCategory] = category
	}
	return f
}

func (f Fields) WithHTTPRequest(method, path, query, userAgent string) Fields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

func (f Fields) WithHTTPResponse(statusCode int, durationMs int64) Fields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// Args flattens the fields into slog key/value pairs.
func (f Fields) Args() []any {
	args := make([]any, 0, len(f)*2)
	for k, v := range f {
		args = append(args, k, v)
	}
	return args
}
