package sentiment

// afinn 词表子集：每个词的情感极性取值 -5..5。
var afinn = map[string]int{
	// strongly negative
	"suicide": -5, "suicidal": -5, "torture": -5, "horrible": -3, "hopeless": -4,
	"worthless": -4, "miserable": -4, "devastated": -4, "terrible": -3, "awful": -3,
	"hate": -3, "hated": -3, "hates": -3, "hating": -3, "disgusting": -3,
	"depressed": -2, "depressing": -2, "depression": -2, "panic": -3, "panicking": -3,
	"terrified": -3, "furious": -3, "angry": -3, "anger": -3, "rage": -2,
	"crying": -2, "cry": -1, "cried": -2, "tears": -2, "heartbroken": -3,
	"broken": -1, "abandoned": -2, "alone": -2, "lonely": -2, "loneliness": -2,
	"isolated": -1, "rejected": -1, "hurt": -2, "hurts": -2, "hurting": -2,
	"pain": -2, "painful": -2, "sad": -2, "sadness": -2, "unhappy": -2,
	"upset": -2, "afraid": -2, "scared": -2, "fear": -2, "fearful": -2,
	"anxious": -2, "anxiety": -2, "worried": -3, "worry": -3, "worrying": -3,
	"nervous": -2, "stress": -1, "stressed": -2, "stressful": -2, "overwhelmed": -2,
	"exhausted": -2, "tired": -2, "sick": -2, "ill": -2, "fail": -2,
	"failed": -2, "failing": -2, "failure": -2, "lost": -3, "lose": -3,
	"losing": -3, "loss": -3, "guilty": -3, "guilt": -3, "ashamed": -2,
	"shame": -2, "embarrassed": -2, "frustrated": -2, "frustrating": -2, "frustration": -2,
	"annoyed": -2, "annoying": -2, "irritated": -3, "bored": -2, "boring": -3,
	"confused": -2, "disappointed": -2, "disappointing": -2, "disappointment": -2, "regret": -2,
	"jealous": -2, "bad": -3, "worse": -3, "worst": -3, "poor": -2,
	"problem": -2, "problems": -2, "trouble": -2, "difficult": -1, "hard": -1,
	"struggle": -2, "struggling": -2, "pressure": -1, "deadline": -1, "deadlines": -1,
	"exam": -1, "exams": -1, "insomnia": -2, "sleepless": -2, "crisis": -3,
	"cruel": -3, "useless": -2, "empty": -1, "numb": -1, "ugly": -3,
	"stupid": -2, "dumb": -3, "wrong": -2, "mess": -2, "dread": -2,
	"kill": -3, "die": -3, "dead": -3, "death": -2, "no": -1,

	// positive
	"ok": 1, "okay": 1, "fine": 2, "calm": 2, "relaxed": 2,
	"relax": 2, "relief": 1, "relieved": 2, "safe": 1, "better": 2,
	"best": 3, "good": 3, "great": 3, "nice": 3, "cool": 1,
	"glad": 3, "happy": 3, "happiness": 3, "joy": 3, "joyful": 3,
	"cheerful": 2, "excited": 3, "exciting": 3, "amazing": 4, "awesome": 4,
	"wonderful": 4, "fantastic": 4, "excellent": 3, "brilliant": 4, "perfect": 3,
	"love": 3, "loved": 3, "loving": 2, "lovely": 3, "like": 2,
	"liked": 2, "enjoy": 2, "enjoyed": 2, "fun": 4, "funny": 4,
	"laugh": 1, "laughing": 1, "smile": 2, "smiling": 2, "thanks": 2,
	"thank": 2, "thankful": 2, "grateful": 3, "appreciate": 2, "appreciated": 2,
	"hope": 2, "hopeful": 2, "hoping": 2, "proud": 2, "confident": 2,
	"motivated": 2, "inspired": 2, "inspiring": 3, "peaceful": 2, "peace": 2,
	"strong": 2, "stronger": 2, "success": 2, "successful": 3, "win": 4,
	"won": 3, "pass": 1, "passed": 1, "improve": 2, "improved": 2,
	"improving": 2, "progress": 2, "support": 2, "supported": 2, "helpful": 2,
	"help": 2, "helped": 2, "care": 2, "kind": 2, "friend": 1,
	"friends": 1, "fresh": 1, "rested": 2, "healthy": 2, "well": 1,
	"yes": 1, "beautiful": 3, "sweet": 2, "comfortable": 2, "content": 2,
	"satisfied": 2, "energized": 2, "balanced": 1, "okayish": 1, "yay": 2,
}

// negators 出现在情感词前一位时翻转其极性。
var negators = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "dont": {}, "don't": {}, "doesnt": {},
	"doesn't": {}, "didnt": {}, "didn't": {}, "cant": {}, "can't": {},
	"cannot": {}, "isnt": {}, "isn't": {}, "wasnt": {}, "wasn't": {},
	"arent": {}, "aren't": {}, "wont": {}, "won't": {}, "aint": {}, "ain't": {},
	"neither": {}, "nor": {}, "without": {},
}
