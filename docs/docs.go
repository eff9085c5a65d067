// Package docs 由 swag 生成的 API 文档，修改控制器注释后使用 `swag init -g cmd/server/main.go` 重新生成
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/ping": {
            "get": {"produces": ["application/json"], "tags": ["Health"], "summary": "Ping",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.SuccessResponse"}}}}
        },
        "/health": {
            "get": {"produces": ["application/json"], "tags": ["Health"], "summary": "服务状态",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.SuccessResponse"}},
                              "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}}}}
        },
        "/auth/register": {
            "post": {"consumes": ["application/json"], "produces": ["application/json"], "tags": ["Auth"], "summary": "用户注册",
                "parameters": [{"description": "注册信息", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.RegisterRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/controllers.LoginData"}},
                              "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}}}}
        },
        "/auth/login": {
            "post": {"consumes": ["application/json"], "produces": ["application/json"], "tags": ["Auth"], "summary": "用户登录",
                "parameters": [{"description": "登录参数", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.LoginRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.LoginData"}},
                              "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}}}}
        },
        "/auth/logout": {
            "post": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["Auth"], "summary": "退出登录",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.SuccessResponse"}}}}
        },
        "/user/me": {
            "get": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["User"], "summary": "当前用户",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                              "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}}}}
        },
        "/access-requests": {
            "post": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["AccessRequest"], "summary": "提交设备访问申请",
                "parameters": [{"description": "申请信息", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.SubmitAccessRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"type": "object", "additionalProperties": true}},
                              "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}},
                              "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}},
                              "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}}}}
        },
        "/access-requests/status": {
            "get": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["AccessRequest"], "summary": "访问申请状态",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}}
        },
        "/admin/access-requests": {
            "get": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["AccessRequest"], "summary": "访问申请列表",
                "parameters": [{"type": "string", "description": "pending/approved/declined", "name": "status", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}}
        },
        "/admin/access-requests/{id}/approve": {
            "put": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["AccessRequest"], "summary": "批准访问申请",
                "parameters": [{"type": "integer", "description": "申请ID", "name": "id", "in": "path", "required": true},
                               {"description": "申请人", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.DecisionRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.SuccessResponse"}},
                              "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}},
                              "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}}}}
        },
        "/admin/access-requests/{id}/decline": {
            "put": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["AccessRequest"], "summary": "拒绝访问申请",
                "parameters": [{"type": "integer", "description": "申请ID", "name": "id", "in": "path", "required": true},
                               {"description": "申请人", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.DecisionRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.SuccessResponse"}},
                              "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}},
                              "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}}}}
        },
        "/admin/notifications": {
            "get": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["Notification"], "summary": "通知列表",
                "parameters": [{"type": "string", "description": "all/unread/pending/通知类型", "name": "filter", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}},
            "post": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["Notification"], "summary": "创建通知",
                "parameters": [{"description": "通知内容", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.CreateNotificationRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"type": "object", "additionalProperties": true}}}}
        },
        "/admin/notifications/mark-read": {
            "post": {"security": [{"BearerAuth": []}], "consumes": ["application/json"], "produces": ["application/json"], "tags": ["Notification"], "summary": "标记已读",
                "parameters": [{"description": "通知ID", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.MarkReadRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}}
        },
        "/admin/notifications/mark-all-read": {
            "post": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["Notification"], "summary": "全部已读",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}}
        },
        "/admin/notifications/delete-all": {
            "delete": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["Notification"], "summary": "清空通知",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}}
        },
        "/admin/notifications/{id}": {
            "delete": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["Notification"], "summary": "删除通知",
                "parameters": [{"type": "integer", "description": "通知ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.SuccessResponse"}},
                              "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/controllers.ErrorResponse"}}}}
        }
    },
    "definitions": {
        "controllers.ErrorResponse": {"type": "object", "properties": {
            "success": {"type": "boolean", "example": false}, "code": {"type": "integer", "example": 106001},
            "message": {"type": "string", "example": "访问申请已处理，不能重复操作"}}},
        "controllers.SuccessResponse": {"type": "object", "properties": {
            "success": {"type": "boolean", "example": true}, "code": {"type": "integer", "example": 100000},
            "message": {"type": "string", "example": "成功"}}},
        "controllers.RegisterRequest": {"type": "object", "required": ["email", "password", "username"], "properties": {
            "username": {"type": "string", "example": "alice"}, "email": {"type": "string", "example": "alice@example.com"},
            "password": {"type": "string", "example": "secret123"}}},
        "controllers.LoginRequest": {"type": "object", "required": ["password"], "properties": {
            "identifier": {"type": "string", "example": "alice@example.com"}, "email": {"type": "string", "example": "alice@example.com"},
            "password": {"type": "string", "example": "secret123"}}},
        "controllers.LoginData": {"type": "object", "properties": {
            "token": {"type": "string"}, "user": {"$ref": "#/definitions/models.User"}}},
        "controllers.SubmitAccessRequest": {"type": "object", "properties": {
            "fromUser": {"type": "string", "example": "alice"}, "fromUserId": {"type": "integer", "example": 3},
            "deviceId": {"type": "string", "example": "12345"}}},
        "controllers.DecisionRequest": {"type": "object", "required": ["userId"], "properties": {
            "userId": {"type": "integer", "example": 3}}},
        "controllers.MarkReadRequest": {"type": "object", "properties": {
            "ids": {"type": "array", "items": {"type": "integer"}}, "id": {"type": "integer"}}},
        "controllers.CreateNotificationRequest": {"type": "object", "required": ["message", "type"], "properties": {
            "type": {"type": "string", "example": "schedule"}, "message": {"type": "string"},
            "userId": {"type": "integer"}, "deviceId": {"type": "string"}}},
        "models.User": {"type": "object", "properties": {
            "id": {"type": "integer"}, "username": {"type": "string"}, "email": {"type": "string"},
            "role": {"type": "string", "example": "User"}, "isVerified": {"type": "boolean"},
            "deviceId": {"type": "string"}, "establishmentId": {"type": "integer"}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"description": "Enter the token with the ` + "`" + `Bearer ` + "`" + ` prefix", "type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Aquasense HTTP Service API",
	Description:      "Water-quality monitoring backend: device access requests, admin approval and notifications",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
