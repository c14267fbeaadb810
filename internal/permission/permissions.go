package permission

import "interviewer/roomhub/internal/model"

// Room-scoped permissions.
const (
	RoomFindByID model.PermissionID = iota + 1
	RoomUpdate
	RoomAddParticipant
	RoomSendEventRequest
	RoomClose
	RoomStartReview
	RoomGetState
	RoomGetAnalytics
	RoomGetAnalyticsSummary
	RoomGetAnswerDetails
	RoomInviteGenerate
	RoomInviteList
	RoomParticipantFind
	RoomParticipantChangeStatus
	RoomParticipantCreate
	RoomParticipantPermissionUpdate
	RoomParticipantList
	RoomQuestionChangeActiveQuestion
	RoomQuestionCreate
	RoomQuestionUpdate
	RoomQuestionFindGuids
	RoomQuestionDelete
	RoomQuestionReactionCreate
	RoomQuestionEvaluationMerge
	RoomQuestionEvaluationFind
	RoomReviewCreate
	RoomReviewUpdate
	RoomReviewFindPage
	RoomReviewCompletion
	RoomReviewUpsert
	RoomConfigurationUpdate
	RoomConfigurationGet
	RoomEventSend
	RoomEventGetByRoom
	RoomTranscriptionGet
	RoomChatMessageSend
	RoomCodeEditorUpdate
	RoomCodeEditorGet
	RoomTimerStart
	RoomTimerStop
)

// Global permissions. They are never part of a participant-type default set.
const (
	RoomCreate model.PermissionID = iota + 41
	QuestionCreate
	QuestionUpdate
	QuestionArchive
	CategoryCreate
	RoadmapEdit
)

var names = map[model.PermissionID]string{
	RoomFindByID:                     "RoomFindById",
	RoomUpdate:                       "RoomUpdate",
	RoomAddParticipant:               "RoomAddParticipant",
	RoomSendEventRequest:             "RoomSendEventRequest",
	RoomClose:                        "RoomClose",
	RoomStartReview:                  "RoomStartReview",
	RoomGetState:                     "RoomGetState",
	RoomGetAnalytics:                 "RoomGetAnalytics",
	RoomGetAnalyticsSummary:          "RoomGetAnalyticsSummary",
	RoomGetAnswerDetails:             "RoomGetAnswerDetails",
	RoomInviteGenerate:               "RoomInviteGenerate",
	RoomInviteList:                   "RoomInviteList",
	RoomParticipantFind:              "RoomParticipantFindByRoomIdAndUserId",
	RoomParticipantChangeStatus:      "RoomParticipantChangeStatus",
	RoomParticipantCreate:            "RoomParticipantCreate",
	RoomParticipantPermissionUpdate:  "RoomParticipantPermissionUpdate",
	RoomParticipantList:              "RoomParticipantList",
	RoomQuestionChangeActiveQuestion: "RoomQuestionChangeActiveQuestion",
	RoomQuestionCreate:               "RoomQuestionCreate",
	RoomQuestionUpdate:               "RoomQuestionUpdate",
	RoomQuestionFindGuids:            "RoomQuestionFindGuids",
	RoomQuestionDelete:               "RoomQuestionDelete",
	RoomQuestionReactionCreate:       "RoomQuestionReactionCreate",
	RoomQuestionEvaluationMerge:      "RoomQuestionEvaluationMerge",
	RoomQuestionEvaluationFind:       "RoomQuestionEvaluationFind",
	RoomReviewCreate:                 "RoomReviewCreate",
	RoomReviewUpdate:                 "RoomReviewUpdate",
	RoomReviewFindPage:               "RoomReviewFindPage",
	RoomReviewCompletion:             "RoomReviewCompletion",
	RoomReviewUpsert:                 "RoomReviewUpsert",
	RoomConfigurationUpdate:          "RoomConfigurationUpdate",
	RoomConfigurationGet:             "RoomConfigurationGet",
	RoomEventSend:                    "RoomEventSend",
	RoomEventGetByRoom:               "RoomEventGetByRoom",
	RoomTranscriptionGet:             "RoomTranscriptionGet",
	RoomChatMessageSend:              "RoomChatMessageSend",
	RoomCodeEditorUpdate:             "RoomCodeEditorUpdate",
	RoomCodeEditorGet:                "RoomCodeEditorGet",
	RoomTimerStart:                   "RoomTimerStart",
	RoomTimerStop:                    "RoomTimerStop",
	RoomCreate:                       "RoomCreate",
	QuestionCreate:                   "QuestionCreate",
	QuestionUpdate:                   "QuestionUpdate",
	QuestionArchive:                  "QuestionArchive",
	CategoryCreate:                   "CategoryCreate",
	RoadmapEdit:                      "RoadmapEdit",
}

var viewerDefaults = []model.PermissionID{
	RoomFindByID,
	RoomGetState,
	RoomParticipantFind,
	RoomQuestionFindGuids,
	RoomQuestionReactionCreate,
	RoomConfigurationGet,
	RoomEventGetByRoom,
	RoomTranscriptionGet,
	RoomChatMessageSend,
	RoomCodeEditorGet,
}

var examineeExtras = []model.PermissionID{
	RoomSendEventRequest,
	RoomGetAnalyticsSummary,
	RoomCodeEditorUpdate,
}
