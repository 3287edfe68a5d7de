package handicap

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	msgUnknownRank     = "Unknown rank, handicap cannot be calculated."
	msgGapTooLarge     = "Rank gap of %d exceeds the allowed range of %d (two main ranks)."
	msgEqualRanks      = "Equal ranks, no handicap."
	msgStakeTooLow     = "Rank gap of %d, but a stake of %d is too low for a handicap."
	msgChallengerBonus = "Challenger receives %d bonus racks (rank gap %d, stake %d)."
	msgOpponentBonus   = "Opponent receives %d bonus racks (rank gap %d, stake %d)."
)

func init() {
	vi := language.Vietnamese
	_ = message.SetString(vi, msgUnknownRank, "Hạng không hợp lệ, không thể tính handicap.")
	_ = message.SetString(vi, msgGapTooLarge, "Chênh lệch %d hạng vượt quá giới hạn %d (tối đa hai hạng chính).")
	_ = message.SetString(vi, msgEqualRanks, "Cùng hạng, không có handicap.")
	_ = message.SetString(vi, msgStakeTooLow, "Chênh lệch %d hạng nhưng mức cược %d quá thấp để có handicap.")
	_ = message.SetString(vi, msgChallengerBonus, "Người thách đấu được cộng %d ván (chênh lệch %d hạng, cược %d).")
	_ = message.SetString(vi, msgOpponentBonus, "Đối thủ được cộng %d ván (chênh lệch %d hạng, cược %d).")
}

var (
	supportedLanguages = []language.Tag{language.Vietnamese, language.English}
	languageMatcher    = language.NewMatcher(supportedLanguages)
)

// MatchLanguage picks the explanation language from Accept-Language style
// inputs, most preferred first. Vietnamese wins when nothing matches.
func MatchLanguage(preferences ...string) language.Tag {
	_, index := language.MatchStrings(languageMatcher, preferences...)
	return supportedLanguages[index]
}
