package log

// Attribute keys. Handlers and services log with these instead of ad hoc
// strings so log queries stay stable.
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldReason    = "reason"
	FieldKey       = "key"

	// request scope
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldUserAgent  = "user_agent"
	FieldReferer    = "referer"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"

	// domain
	FieldExpenseID = "expense_id"
	FieldUserID    = "user_id"
	FieldCompanyID = "company_id"
	FieldRole      = "role"
	FieldStatus    = "status"
	FieldAmount    = "amount"
	FieldCurrency  = "currency"
	FieldCategory  = "category"
	FieldLedgerRef = "ledger_ref"
)

// Component names, one per package that logs.
const (
	ComponentApp        = "app"
	ComponentCLI        = "cli"
	ComponentHTTP       = "http"
	ComponentSecurity   = "security"
	ComponentRateLimit  = "rate_limit"
	ComponentExpense    = "expense"
	ComponentAccount    = "account"
	ComponentCache      = "cache"
	ComponentBackend    = "backend"
	ComponentRepository = "repository"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentSheets     = "sheets"
)

const (
	OpStartup  = "startup"
	OpShutdown = "shutdown"
	OpLogin    = "login"
	OpSubmit   = "submit"
	OpDecide   = "decide"
	OpSync     = "sync"
)
