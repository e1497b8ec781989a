package extract

import (
	"regexp"
	"strings"
)

var (
	instagramUsernameRe = regexp.MustCompile(`^[a-zA-Z0-9_.]{1,30}$`)
	twitterUsernameRe   = regexp.MustCompile(`^[a-zA-Z0-9_]{1,15}$`)
)

// denylist holds words that match the username character rules but are
// frequent false positives in notification boilerplate, including the
// localized (zh-TW) equivalents the source apps emit.
var denylist = map[string]struct{}{
	"twitter":      {},
	"post":         {},
	"tweet":        {},
	"發布":           {},
	"分享":           {},
	"回覆":           {},
	"轉推":           {},
	"new":          {},
	"latest":       {},
	"update":       {},
	"notification": {},
	"通知":           {},
	"instagram":    {},
	"live":         {},
	"直播":           {},
	"視訊":           {},
	"相片":           {},
	"photo":        {},
	"video":        {},
}

func isDenylisted(word string) bool {
	_, ok := denylist[strings.ToLower(word)]
	return ok
}

// validInstagramUsername applies Instagram's handle rules: 1-30 chars,
// letters/digits/underscore/dot.
func validInstagramUsername(u string) bool {
	return instagramUsernameRe.MatchString(u) && !isDenylisted(u)
}

// validTwitterUsername applies Twitter's handle rules: letters, digits
// and underscore up to 15 chars. Single characters are rejected; they
// are almost always sentence fragments, not handles.
func validTwitterUsername(u string) bool {
	return twitterUsernameRe.MatchString(u) && len(u) >= 2 && !isDenylisted(u)
}
