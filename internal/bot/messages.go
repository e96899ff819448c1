package bot

// =============================================================================
// General messages
// =============================================================================

const (
	MsgStart = `Send a photo of an item you want to sell and I'll appraise it for you.

You can also attach the image as a file. Share your location to include nearby stores in the appraisal.`
	MsgWorkflowReset   = "Started over. Send a new photo when you're ready."
	MsgWorkflowExpired = "Your appraisal expired due to inactivity and was discarded. Send a new photo to start again."
	MsgUnknownInput    = "Send a photo to start an appraisal, or /help for commands."
	MsgHelp            = `Commands:
/offers [job id] - check the latest store call results
/token <token> - set your API token
/logout - forget your API token
/reset - discard the current appraisal
/start - how this works`
)

// =============================================================================
// Workflow messages
// =============================================================================

const (
	MsgPreview          = "Got it! Ready to appraise this item?"
	MsgAnalyzing        = "Analyzing your item, this can take a moment..."
	MsgAnalysisFailed   = "Appraisal failed: %s"
	MsgNegotiateFailed  = "Couldn't start the store calls: %s"
	MsgCalling          = "I'm on it! I'll call the stores and negotiate for you.\n\nJob `%s` — check progress with the button below or `/offers %s`."
	MsgNothingToAnalyze = "Nothing to analyze yet. Send a photo first."
	MsgShareLocation    = "Want nearby store suggestions? Share your location (optional)."
	MsgLocationSaved    = "Location saved. Nearby stores will be included in the appraisal."
	MsgLocationIgnored  = "Already have a location for this session."
)

// =============================================================================
// Offer view messages
// =============================================================================

const (
	MsgNoJobReference  = "No store calls to check. Run an appraisal and tap \"Yes, call them\" first."
	MsgOfferFetchError = "Couldn't fetch offers: %s"
)

// =============================================================================
// Token messages
// =============================================================================

const (
	MsgTokenUsage   = "Usage: `/token <your API token>`"
	MsgTokenSaved   = "Token saved. Your requests are now authenticated."
	MsgTokenCleared = "Token removed. Requests will be sent unauthenticated."
)

// =============================================================================
// Button labels and callback data
// =============================================================================

const (
	BtnAnalyze   = "Analyze"
	BtnNegotiate = "Yes, call them"
	BtnRefresh   = "Refresh"
	BtnRetry     = "Try again"
	BtnStartOver = "Start over"

	CallbackAnalyze      = "analyze"
	CallbackNegotiate    = "negotiate"
	CallbackRetry        = "retry"
	CallbackReset        = "reset"
	CallbackOffersPrefix = "offers:"
)
