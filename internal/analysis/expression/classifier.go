package expression

// State 表示从表情分数推导出的离散情绪状态。
type State string

const (
	Nervous      State = "nervous"
	Anxious      State = "anxious"
	Frustrated   State = "frustrated"
	Confident    State = "confident"
	Excited      State = "excited"
	Sad          State = "sad"
	Neutral      State = "neutral"
	Undetermined State = "undetermined"

	// NoDetection 表示采样时画面中没有人脸，不等同于 Undetermined。
	NoDetection State = "no-detection"
)

const (
	minConfidence = 0.3
	minMargin     = 0.1
)

// Scores 是单帧的七维表情置信度，分类器不要求归一化。
type Scores struct {
	Neutral   float64 `json:"neutral"`
	Happy     float64 `json:"happy"`
	Sad       float64 `json:"sad"`
	Angry     float64 `json:"angry"`
	Fearful   float64 `json:"fearful"`
	Disgusted float64 `json:"disgusted"`
	Surprised float64 `json:"surprised"`
}

type weighting struct {
	state  State
	weight func(Scores) float64
}

// weights 的顺序同时决定同分时的排序，保证结果确定。
var weights = []weighting{
	{Nervous, func(s Scores) float64 { return s.Fearful*0.7 + s.Sad*0.5 + s.Surprised*0.3 }},
	{Anxious, func(s Scores) float64 { return s.Fearful*0.6 + s.Surprised*0.4 }},
	{Frustrated, func(s Scores) float64 { return s.Angry*1.0 + s.Disgusted*0.8 }},
	{Confident, func(s Scores) float64 { return s.Happy*0.6 + s.Neutral*0.4 }},
	{Excited, func(s Scores) float64 { return s.Happy*0.7 + s.Surprised*0.5 }},
	{Sad, func(s Scores) float64 { return s.Sad * 1.0 }},
	{Neutral, func(s Scores) float64 { return s.Neutral * 1.0 }},
}

// Ranked 是某个状态的加权得分。
type Ranked struct {
	State State
	Score float64
}

// Rank 计算所有候选状态的得分并按降序返回，同分保持权重表顺序。
func Rank(scores Scores) []Ranked {
	ranked := make([]Ranked, 0, len(weights))
	for _, w := range weights {
		candidate := Ranked{State: w.state, Score: w.weight(scores)}
		// 稳定插入排序，候选只有七个。
		pos := len(ranked)
		for pos > 0 && ranked[pos-1].Score < candidate.Score {
			pos--
		}
		ranked = append(ranked, Ranked{})
		copy(ranked[pos+1:], ranked[pos:])
		ranked[pos] = candidate
	}
	return ranked
}

// Classify 将表情分数映射为情绪状态。得分最高者低于 0.3，或领先第二名不足 0.1 时返回 Undetermined。
func Classify(scores Scores) State {
	ranked := Rank(scores)
	top := ranked[0]
	second := 0.0
	if len(ranked) > 1 {
		second = ranked[1].Score
	}

	if top.Score < minConfidence || top.Score-second < minMargin {
		return Undetermined
	}
	return top.State
}

// ParseState 校验客户端上报的标签。
func ParseState(raw string) (State, bool) {
	switch state := State(raw); state {
	case Nervous, Anxious, Frustrated, Confident, Excited, Sad, Neutral, Undetermined, NoDetection:
		return state, true
	default:
		return "", false
	}
}
