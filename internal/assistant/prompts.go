package assistant

import (
	"fmt"
	"time"

	"github.com/i474232898/weather-assistant/internal/weather"
)

// LLM call stages.
const (
	StageExtract = "extract"
	StageCompose = "compose"
)

const (
	extractSystemRole = "도시와 날짜 추출"
	composeSystemRole = "날씨 정보 생성"

	extractMaxTokens = 150
	composeMaxTokens = 200
	llmTemperature   = 0.7
)

const (
	// Apology is the only reply users see when weather lookup fails.
	Apology = "죄송합니다, 날씨 정보를 가져오는 데 실패했습니다."
	// ComposeFallback is returned when the reply could not be phrased.
	ComposeFallback = "죄송합니다, 요청을 처리하는 중 오류가 발생했습니다."
)

// ExtractionPrompt asks the model for the city and YYYYMMDDHHMMSS date of a query.
func ExtractionPrompt(query string, now time.Time) string {
	return fmt.Sprintf(`
사용자의 질의에서 도시(영어명)와 날짜를 추출해주세요. 현재 시간은 %s입니다.

질의: "%s"

요구사항:
- 'city': 질의에서 언급된 도시 이름을 영어로 반환하세요. 언급되지 않았다면 기본값으로 'Seoul'을 사용하세요.
- 'date': 질의에서 언급된 날짜를 'YYYYMMDDHHMMSS' 형식으로 변환하여 반환하세요. '오늘', '내일', '모레' 등의 상대적 날짜도 변환하세요.
- 결과를 JSON 형식으로 출력해주세요.

주의 사항:
- 질의의 띄어쓰기, 맞춤법, 오탈자를 먼저 수정하세요.
- 도시 이름의 각 단어 첫 글자를 대문자로 변환하세요.
- 날짜의 시간이 특정되지 않았다면 12시 정각으로 설정하세요. 날짜가 언급되지 않았다면 현재 날짜를 사용하세요.
- 오늘의 날씨에 대한 질의이면서, 특정 시간을 언급하지 않는 경우 현재 시간을 사용하세요.

결과 예시:
{
  "city": "Seoul",
  "date": "YYYYMMDDHHMMSS"
}
`, weather.FormatCanonical(now), query)
}

// WeatherInfo is the one-line fact sheet handed to the composer.
func WeatherInfo(obs *weather.Observation) string {
	return fmt.Sprintf("%s의 %s 날씨는 %s이며, 기온은 %.1f도입니다.",
		obs.City,
		obs.EffectiveTime.Format(weather.DisplayLayout),
		obs.Condition,
		obs.Temperature)
}

// CompositionPrompt asks the model to explain WeatherInfo to the user.
func CompositionPrompt(obs *weather.Observation) string {
	return "사용자에게 다음 정보에 대해 친절하고 자연스럽게 설명해줘:\n\n" + WeatherInfo(obs)
}
