package disambig

import "testing"

func TestParseUpstreamAnswer(t *testing.T) {
	tests := []struct {
		name        string
		answer      string
		wantType    AnswerType
		wantContent string
	}{
		{
			name:        "business item with empty follow up",
			answer:      "“业务主项”：律师事务所（分所）变更，“追问问题”：空",
			wantType:    AnswerBusinessItem,
			wantContent: "律师事务所（分所）变更",
		},
		{
			name:        "business item at end of text",
			answer:      "“业务主项”：残疾证办理",
			wantType:    AnswerBusinessItem,
			wantContent: "残疾证办理",
		},
		{
			name:        "follow up question",
			answer:      "“业务主项”：空，“追问问题”：请问您要办理残疾证还是营业执照？",
			wantType:    AnswerFollowUp,
			wantContent: "请问您要办理残疾证还是营业执照？",
		},
		{
			name:        "both empty sentinels",
			answer:      "“业务主项”：空，“追问问题”：空",
			wantType:    AnswerUnknown,
			wantContent: "“业务主项”：空，“追问问题”：空",
		},
		{
			name:        "no delimiters at all",
			answer:      "您好，请问有什么可以帮您？",
			wantType:    AnswerUnknown,
			wantContent: "您好，请问有什么可以帮您？",
		},
		{
			name:        "business item wins over follow up",
			answer:      "“业务主项”：营业执照办理，“追问问题”：还需要别的吗",
			wantType:    AnswerBusinessItem,
			wantContent: "营业执照办理",
		},
		{
			name:        "whitespace around value",
			answer:      "“业务主项”： 护照办理 ，“追问问题”：空",
			wantType:    AnswerBusinessItem,
			wantContent: "护照办理",
		},
		{
			name:        "fields on separate lines",
			answer:      "“业务主项”：空\n“追问问题”：请选择区县",
			wantType:    AnswerFollowUp,
			wantContent: "请选择区县",
		},
		{
			name:        "empty answer",
			answer:      "",
			wantType:    AnswerUnknown,
			wantContent: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseUpstreamAnswer(tt.answer)
			if got.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", got.Type, tt.wantType)
			}
			if got.Content != tt.wantContent {
				t.Errorf("Content = %q, want %q", got.Content, tt.wantContent)
			}
		})
	}
}
