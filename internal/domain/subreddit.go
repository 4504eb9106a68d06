package domain

// Attribute codes for subreddit posting rules. Imported rows carry these as
// words ("Allowed", "Required", ...); the catalog stores the numeric code.
const (
	CodeUnknown   = -1
	CodeForbidden = 0
	CodeAllowed   = 1
	CodeRequired  = 2
	CodeOptional  = 3
	CodeUsername  = 4
	CodeComment   = 5
	CodeProfile   = 6
	CodeNo        = 7
)

type Subreddit struct {
	SubredditID  string `json:"id" dynamodbav:"subreddit_id"`
	Name         string `json:"name" dynamodbav:"name"`
	Niche        string `json:"niche" dynamodbav:"niche"`
	Subscribers  int    `json:"subscribers" dynamodbav:"subscribers"`
	Title        string `json:"title" dynamodbav:"title"`
	Verification int    `json:"verification" dynamodbav:"verification"`
	Selling      int    `json:"selling" dynamodbav:"selling"`
	Watermark    int    `json:"watermark" dynamodbav:"watermark"`
	Icon         string `json:"icon,omitempty" dynamodbav:"icon"`
}
