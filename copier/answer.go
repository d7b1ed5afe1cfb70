package copier

// Answer is an operator's reply to a dialog.
type Answer int

// The zero Answer is AnswerCancel, so a dialog dismissed without a choice
// cancels.
const (
	AnswerCancel Answer = iota
	AnswerRetry
	AnswerSkip
	AnswerIgnore
	AnswerYes
	AnswerNo
	AnswerAppend
	AnswerAll         // overwrite this and every later conflict
	AnswerUpdate      // overwrite when the source is newer, from now on
	AnswerSizeDiffers // overwrite when sizes differ, from now on
	AnswerNone        // skip this and every later conflict
	AnswerAbort
)

var answerNames = [...]string{
	AnswerCancel:      "cancel",
	AnswerRetry:       "retry",
	AnswerSkip:        "skip",
	AnswerIgnore:      "ignore",
	AnswerYes:         "yes",
	AnswerNo:          "no",
	AnswerAppend:      "append",
	AnswerAll:         "all",
	AnswerUpdate:      "update",
	AnswerSizeDiffers: "size-differs",
	AnswerNone:        "none",
	AnswerAbort:       "abort",
}

func (a Answer) String() string {
	if a >= 0 && int(a) < len(answerNames) {
		return answerNames[a]
	}
	return "unknown"
}

// Rule decides what happens to a destination file that already exists.
type Rule int

const (
	RuleAsk Rule = iota
	RuleSkip
	RuleOverwrite
	RuleAppend
	RuleOverwriteAll
	RuleOverwriteIfNewer
	RuleOverwriteIfSizeDiffers
	RuleSkipAll
	RuleAbort
)

func (r Rule) String() string {
	switch r {
	case RuleAsk:
		return "ask"
	case RuleSkip:
		return "skip"
	case RuleOverwrite:
		return "overwrite"
	case RuleAppend:
		return "append"
	case RuleOverwriteAll:
		return "overwrite-all"
	case RuleOverwriteIfNewer:
		return "overwrite-if-newer"
	case RuleOverwriteIfSizeDiffers:
		return "overwrite-if-size-differs"
	case RuleSkipAll:
		return "skip-all"
	case RuleAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// sticky reports whether the rule applies to every later conflict of the
// session.
func (r Rule) sticky() bool {
	switch r {
	case RuleOverwriteAll, RuleSkipAll, RuleOverwriteIfNewer, RuleOverwriteIfSizeDiffers:
		return true
	}
	return false
}

// Outcome is the result of copying one file or directory.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeSkipped
	OutcomeAborted
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeAborted:
		return "aborted"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// stops reports whether the outcome ends the whole invocation.
func (o Outcome) stops() bool {
	return o == OutcomeAborted || o == OutcomeFatal
}
