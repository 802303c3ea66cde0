package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CategoryDefinition はカテゴリの表示用メタデータ。
// カテゴリ自体は自由文字列で、既知のものだけ表示情報を持つ。
type CategoryDefinition struct {
	Slug    string
	Emoji   string
	Label   string
	Tagline string
}

// defaultCategoryEmoji は未知カテゴリに使用する絵文字。
const defaultCategoryEmoji = "💬"

var knownCategories = []CategoryDefinition{
	{Slug: "petty", Emoji: "🔥", Label: "Petty", Tagline: "Arguments that should never have happened, and yet here we are."},
	{Slug: "tech", Emoji: "💻", Label: "Tech", Tagline: "Tabs vs spaces and other holy wars."},
	{Slug: "food_takes", Emoji: "🍕", Label: "Food Takes", Tagline: "Pineapple on pizza is just the beginning."},
	{Slug: "unhinged", Emoji: "🤯", Label: "Unhinged", Tagline: "Nobody knows how it got here."},
	{Slug: "relationship", Emoji: "💔", Label: "Relationship", Tagline: "Love, loss, and who should have texted back."},
	{Slug: "gaming", Emoji: "🎮", Label: "Gaming", Tagline: "Git gud, or argue about it."},
	{Slug: "sports", Emoji: "🏀", Label: "Sports", Tagline: "GOAT debates that will never end."},
	{Slug: "politics", Emoji: "🏛️", Label: "Politics", Tagline: "Comment sections at their most civil. Just kidding."},
	{Slug: "aita", Emoji: "🧐", Label: "AITA", Tagline: "The internet decides who is the jerk."},
	{Slug: "pedantic", Emoji: "🤓", Label: "Pedantic", Tagline: "Well, actually..."},
	{Slug: "movies_tv", Emoji: "🎬", Label: "Movies & TV", Tagline: "Spoilers, plot holes, and casting takes."},
	{Slug: "music", Emoji: "🎵", Label: "Music", Tagline: "Your favorite band is overrated."},
	{Slug: "philosophy", Emoji: "🤔", Label: "Philosophy", Tagline: "Is a hot dog a sandwich?"},
	{Slug: "money", Emoji: "💸", Label: "Money", Tagline: "Tipping debates, rent splits, and financial hot takes."},
	{Slug: "religion", Emoji: "🙏", Label: "Religion", Tagline: "Holy wars, but make them comment sections."},
	{Slug: "science", Emoji: "🔬", Label: "Science", Tagline: "Peer review, but angrier."},
	{Slug: "cars", Emoji: "🚗", Label: "Cars", Tagline: "Horsepower arguments and road rage in text form."},
	{Slug: "fitness", Emoji: "💪", Label: "Fitness", Tagline: "Broscience vs actual science."},
	{Slug: "anime", Emoji: "⚔️", Label: "Anime", Tagline: "Power scaling debates and waifu wars."},
}

var knownCategoryMap = func() map[string]CategoryDefinition {
	m := make(map[string]CategoryDefinition, len(knownCategories))
	for _, c := range knownCategories {
		m[c.Slug] = c
	}
	return m
}()

// KnownCategories は表示メタデータを持つカテゴリを定義順で返す。
func KnownCategories() []CategoryDefinition {
	out := make([]CategoryDefinition, len(knownCategories))
	copy(out, knownCategories)
	return out
}

// IsKnownCategory はslugが既知カテゴリかを返す。
func IsKnownCategory(slug string) bool {
	_, ok := knownCategoryMap[slug]
	return ok
}

// CategoryDisplay は任意のカテゴリslugの表示情報を返す。
// 未知のslugはアンダースコアを空白に置き換えてタイトルケース化したラベルを生成する。
func CategoryDisplay(slug string) CategoryDefinition {
	if known, ok := knownCategoryMap[slug]; ok {
		return known
	}

	label := cases.Title(language.English).String(strings.ReplaceAll(slug, "_", " "))
	return CategoryDefinition{
		Slug:    slug,
		Emoji:   defaultCategoryEmoji,
		Label:   label,
		Tagline: "Internet arguments about " + strings.ToLower(label) + ".",
	}
}
