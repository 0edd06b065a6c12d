package sections

// DefaultTable returns the built-in rules: badminton brands, UFC events,
// consumer trend keywords, then general-purpose headings. Order matters.
func DefaultTable() *Table {
	return NewTable(
		// Badminton.
		Rule{ID: "yonex", Match: Contains{"요넥스", "YONEX"}, Tags: []string{"요넥스"}},
		Rule{ID: "victor", Match: Contains{"빅터", "VICTOR"}, Tags: []string{"빅터"}},
		Rule{ID: "lining", Match: Contains{"리닝", "Li-Ning"}, Tags: []string{"리닝"}},
		Rule{ID: "other", Match: Contains{"기타"}, Tags: []string{"기타 주목할 브랜드", "기타"}},
		Rule{ID: "compare", Match: Contains{"비교"}, Tags: []string{"브랜드별 비교정리"}},
		Rule{ID: "tips", Match: Contains{"구매"}, Tags: []string{"구매팁"}},

		// UFC.
		Rule{ID: "champion", Match: Contains{"챔피언", "Champion"}, Tags: []string{"챔피언 소식"}},
		Rule{ID: "ufc322", Match: Contains{"UFC 322"}, Tags: []string{"UFC 322"}},
		Rule{ID: "qatar", Match: Contains{"카타르", "Qatar"}, Tags: []string{"카타르"}},
		Rule{ID: "bigmatch", Match: Contains{"2026", "빅매치"}, Tags: []string{"2026년 빅매치"}},
		Rule{ID: "players", Match: Contains{"주목", "선수"}, Tags: []string{"주목할 선수들"}},
		Rule{ID: "summary", Match: Contains{"요약", "Summary"}, Tags: []string{"UFC 요약"}},

		// Consumer trends.
		Rule{ID: "omnivore", Match: Contains{"옴니보어", "Omnivore"}, Tags: []string{"옴니보어"}},
		Rule{ID: "aboha", Match: Contains{"아보하", "Aboha"}, Tags: []string{"아보하"}},
		Rule{ID: "topping", Match: Contains{"토핑경제", "Topping"}, Tags: []string{"토핑경제"}},
		Rule{ID: "harmless", Match: Contains{"무해력", "Harmless"}, Tags: []string{"무해력"}},
		Rule{ID: "practical", Match: Contains{"실용소비", "안티플렉스"}, Tags: []string{"실용소비"}},
		Rule{ID: "ai", Match: Contains{"AI 시대", "제로클릭"}, Tags: []string{"AI시대"}},
		Rule{ID: "summary", Match: Contains{"한눈에", "트렌드"}},

		// Common.
		Rule{ID: "video", Match: Contains{"관련 영상", "📺"}, Tags: []string{"관련 영상"}},
		Rule{ID: "outro", Match: Contains{"마무리", "결론"}, Tags: []string{"마무리"}},
	)
}
