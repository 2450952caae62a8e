package models

// Sentinel value meaning "let the resolver pick a concrete value at execution time".
// It is shared by every randomizable enum field below.
const RandomSentinel = "random"

// Tone определяет тон генерируемого поста.
type Tone string

const (
	ToneRandom        Tone = RandomSentinel
	ToneProfessional  Tone = "professional"
	ToneControversial Tone = "controversial"
	ToneInspirational Tone = "inspirational"
	ToneEducational   Tone = "educational"
	ToneHumorous      Tone = "humorous"
	TonePromotional   Tone = "promotional"
	ToneEmpathetic    Tone = "empathetic"
	ToneStorytelling  Tone = "storytelling"
)

// Framework определяет структуру (копирайтинг-формулу) поста.
type Framework string

const (
	FrameworkRandom       Framework = RandomSentinel
	FrameworkStandard     Framework = "standard"
	FrameworkPAS          Framework = "pas"
	FrameworkAIDA         Framework = "aida"
	FrameworkBAB          Framework = "bab"
	FrameworkListicle     Framework = "listicle"
	FrameworkStory        Framework = "story"
	FrameworkCaseStudy    Framework = "case_study"
	FrameworkContrarian   Framework = "contrarian"
	FrameworkVsComparison Framework = "vs_comparison"
)

// PostLength определяет целевую длину поста.
type PostLength string

const (
	LengthRandom PostLength = RandomSentinel
	LengthShort  PostLength = "short"
	LengthMedium PostLength = "medium"
	LengthLong   PostLength = "long"
)

// EmojiDensity определяет насыщенность поста эмодзи.
type EmojiDensity string

const (
	EmojiRandom   EmojiDensity = RandomSentinel
	EmojiMinimal  EmojiDensity = "minimal"
	EmojiModerate EmojiDensity = "moderate"
	EmojiHigh     EmojiDensity = "high"
)

// HookStyle определяет стиль первой строки ("хука") поста.
type HookStyle string

const (
	HookRandom    HookStyle = RandomSentinel
	HookQuestion  HookStyle = "question"
	HookStatistic HookStyle = "statistic"
	HookNegative  HookStyle = "negative"
	HookStory     HookStyle = "story"
	HookAssertion HookStyle = "assertion"
)

// Candidate pools for randomizable fields. Each pool intentionally
// contains the sentinel as its first element, mirroring the option lists
// shown to the user; the resolver filters it out before sampling.
var (
	TonePool = []Tone{
		ToneRandom, ToneProfessional, ToneControversial, ToneInspirational,
		ToneEducational, ToneHumorous, TonePromotional, ToneEmpathetic, ToneStorytelling,
	}
	FrameworkPool = []Framework{
		FrameworkRandom, FrameworkStandard, FrameworkPAS, FrameworkAIDA, FrameworkBAB,
		FrameworkListicle, FrameworkStory, FrameworkCaseStudy, FrameworkContrarian, FrameworkVsComparison,
	}
	LengthPool = []PostLength{LengthRandom, LengthShort, LengthMedium, LengthLong}
	EmojiPool  = []EmojiDensity{EmojiRandom, EmojiMinimal, EmojiModerate, EmojiHigh}
	HookPool   = []HookStyle{HookRandom, HookQuestion, HookStatistic, HookNegative, HookStory, HookAssertion}
)

// GenerationParams описывает один генерируемый пост.
// Поля-перечисления могут содержать значение RandomSentinel до резолвинга;
// после резолвинга снапшот неизменяем и передается генератору как есть.
type GenerationParams struct {
	Topic           string       `json:"topic"`
	Audience        string       `json:"audience"`
	Tone            Tone         `json:"tone"`
	Framework       Framework    `json:"framework"`
	Length          PostLength   `json:"length"`
	EmojiDensity    EmojiDensity `json:"emoji_density"`
	HookStyle       HookStyle    `json:"hook_style"`
	HashtagCount    int          `json:"hashtag_count"`    // 0..5
	CreativityLevel int          `json:"creativity_level"` // 0..100
	Language        string       `json:"language"`
	BrandVoice      string       `json:"brand_voice,omitempty"`
}

// DefaultGenerationParams возвращает параметры по умолчанию для формы
// интерактивного генератора: все перечисления в random.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		Tone:            ToneRandom,
		Framework:       FrameworkRandom,
		Length:          LengthRandom,
		EmojiDensity:    EmojiRandom,
		HookStyle:       HookRandom,
		HashtagCount:    3,
		CreativityLevel: 50,
		Language:        "es",
	}
}

// HasRandomFields reports whether any enum field still holds the sentinel.
func (p GenerationParams) HasRandomFields() bool {
	return p.Tone == ToneRandom ||
		p.Framework == FrameworkRandom ||
		p.Length == LengthRandom ||
		p.EmojiDensity == EmojiRandom ||
		p.HookStyle == HookRandom
}
