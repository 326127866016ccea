package analysis

// WebhookPayload 提供商通话结束回调的外层结构
// 字段均为提供商定义，未识别的部分保持原样不做解释
type WebhookPayload struct {
	Type string              `json:"type"`
	Data WebhookConversation `json:"data"`
}

// WebhookConversation 单次通话的回调数据
type WebhookConversation struct {
	AgentID        string                 `json:"agent_id"`
	ConversationID string                 `json:"conversation_id"`
	Status         string                 `json:"status"`
	Metadata       WebhookMetadata        `json:"metadata"`
	Analysis       WebhookAnalysis        `json:"analysis"`
	ClientData     WebhookInitiationData  `json:"conversation_initiation_client_data"`
	Extra          map[string]interface{} `json:"-"`
}

// WebhookMetadata 通话元数据
type WebhookMetadata struct {
	StartTimeUnixSecs int64  `json:"start_time_unix_secs"`
	CallDurationSecs  int64  `json:"call_duration_secs"`
	PhoneNumber       string `json:"phone_number,omitempty"`
}

// WebhookAnalysis 提供商侧的分析结果容器
type WebhookAnalysis struct {
	CallSuccessful        string                 `json:"call_successful"`
	TranscriptSummary     string                 `json:"transcript_summary"`
	DataCollectionResults map[string]interface{} `json:"data_collection_results"`
}

// WebhookInitiationData 通话发起时附带的动态变量
type WebhookInitiationData struct {
	DynamicVariables map[string]interface{} `json:"dynamic_variables"`
}
