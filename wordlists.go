package sentiment

// englishStopwords is the standard English stopword inventory applied during
// preprocessing. Negation and intensity terms are excluded again via
// sentimentPreserving before use.
var englishStopwords = toSet([]string{
	"a", "about", "above", "after", "again", "against", "all", "am", "an",
	"and", "any", "are", "as", "at", "be", "because", "been", "before",
	"being", "below", "between", "both", "but", "by", "can", "could", "did",
	"do", "does", "doing", "down", "during", "each", "few", "for", "from",
	"further", "had", "has", "have", "having", "he", "her", "here", "hers",
	"herself", "him", "himself", "his", "how", "i", "if", "in", "into", "is",
	"it", "its", "itself", "just", "me", "more", "most", "my", "myself",
	"no", "nor", "not", "now", "of", "off", "on", "once", "only", "or",
	"other", "our", "ours", "ourselves", "out", "over", "own", "same", "she",
	"should", "so", "some", "such", "than", "that", "the", "their", "theirs",
	"them", "themselves", "then", "there", "these", "they", "this", "those",
	"through", "to", "too", "under", "until", "up", "very", "was", "we",
	"were", "what", "when", "where", "which", "while", "who", "whom", "why",
	"will", "with", "would", "you", "your", "yours", "yourself", "yourselves",
})

// vietnameseStopwords covers function words plus the non-sentiment shopping
// vocabulary common in Vietnamese product reviews, including the English
// fillers that show up in mixed-language text.
var vietnameseStopwords = toSet([]string{
	// Determiners and demonstratives
	"một", "các", "những", "mọi", "tất", "cả", "này", "đó", "kia", "nọ",
	// Prepositions
	"của", "cho", "với", "từ", "trong", "trên", "dưới", "về", "đến", "tại",
	"bằng", "theo", "giữa", "ngoài", "sau", "trước", "qua", "vào", "ra",
	// Conjunctions
	"và", "hoặc", "hay", "nhưng", "mà", "thì", "nên", "vì", "do", "nếu",
	"khi", "lúc", "kể", "dù", "mặc", "tuy", "song",
	// Pronouns
	"tôi", "bạn", "anh", "chị", "em", "ông", "bà", "cô", "chú", "mình",
	"họ", "nó", "gì", "ai", "đâu", "nào", "sao", "thế",
	// Common verbs
	"là", "có", "được", "làm", "đi", "lên", "xuống", "nói", "thấy", "biết",
	"muốn", "cần", "phải", "đang", "đã", "sẽ",
	// Quantifiers
	"nhiều", "ít", "hơn", "kém", "như", "cũng", "còn", "chỉ", "chưa",
	"rồi", "lại", "nữa", "thêm", "bớt", "hết", "xong",
	// Neutral descriptive adjectives
	"lớn", "nhỏ", "to", "bé", "dài", "ngắn", "cao", "thấp", "rộng", "hẹp",
	"mới", "cũ", "đầu", "cuối",
	// Shopping vocabulary without sentiment
	"sản", "phẩm", "hàng", "món", "cái", "chiếc", "đồ", "thứ", "loại",
	"mua", "bán", "shop", "store", "size", "màu", "giá", "tiền", "đồng",
	// English fillers common in Vietnamese reviews
	"the", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with",
	"by", "from", "this", "that", "these", "those", "is", "are", "was",
	"were", "be", "been", "have", "has", "had", "do", "does", "did", "will",
	"would", "could", "should", "can", "ok", "okay", "quality", "product",
	"item",
})

// sentimentPreserving lists words excluded from stopword removal because
// they carry polarity, negation, or intensity signal the classifier needs.
var sentimentPreserving = map[Language]map[string]bool{
	English: toSet([]string{
		"no", "nor", "not", "very", "too", "against", "down", "off", "most",
		"good", "bad", "great", "love", "hate", "like", "best", "worst",
	}),
	Vietnamese: toSet([]string{
		"tốt", "xấu", "đẹp", "chán", "hay", "dở", "tuyệt", "xuất sắc",
		"tệ", "kinh khủng", "ổn", "bình thường", "yêu", "thích", "ghét",
		"hài lòng", "thất vọng", "hư", "hỏng", "nhanh", "chậm", "chất lượng",
		"rẻ", "đắt", "sang", "rác", "khủng", "không",
	}),
}

// vietnameseCompounds seeds the word segmenter with multi-word units that
// must survive tokenization as single terms. Most entries carry sentiment or
// modify it.
var vietnameseCompounds = []string{
	"chất lượng", "tuyệt vời", "xuất sắc", "hoàn hảo", "hài lòng",
	"thất vọng", "kinh khủng", "bình thường", "yêu thích", "đáng tiền",
	"ưng ý", "tồi tệ", "phí tiền", "không đáng", "không hài lòng",
	"giao hàng", "đóng gói", "nhanh chóng", "chậm trễ", "tuyệt hảo",
	"sản phẩm", "việt nam", "dễ thương", "dễ chịu", "khó chịu",
	"đúng hẹn", "trễ hẹn", "rất tốt", "rất tệ",
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
