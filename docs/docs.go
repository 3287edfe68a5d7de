// Package docs registers the OpenAPI document served under /swagger/.
// Regenerate with: swag init -g cmd/main.go -o docs
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
        "/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Create a player account",
                "parameters": [
                    {"description": "Account details", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.RegisterInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object", "additionalProperties": true}},
                    "409": {"description": "Email already registered", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "422": {"description": "Unprocessable Entity", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Exchange credentials for a bearer token",
                "parameters": [
                    {"description": "Credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.LoginInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "403": {"description": "Account banned", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/handicap": {
            "get": {
                "produces": ["application/json"],
                "tags": ["challenges"],
                "summary": "Preview the handicap for two ranks and a stake",
                "parameters": [
                    {"type": "string", "description": "Challenger rank, e.g. K+", "name": "challenger_rank", "in": "query", "required": true},
                    {"type": "string", "description": "Opponent rank", "name": "opponent_rank", "in": "query", "required": true},
                    {"type": "integer", "description": "Stake amount", "name": "stake", "in": "query", "required": true},
                    {"type": "string", "description": "vi or en", "name": "lang", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handicap.Result"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/challenges": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["challenges"],
                "summary": "Challenge another player to a stake match",
                "parameters": [
                    {"description": "Opponent and stake", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.CreateChallengeInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object", "additionalProperties": true}},
                    "422": {"description": "Invalid stake, missing rank or rank gap too large", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/challenges/{challengeID}/score": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["challenges"],
                "summary": "Submit the raw racks won by each side",
                "parameters": [
                    {"type": "integer", "description": "Challenge ID", "name": "challengeID", "in": "path", "required": true},
                    {"description": "Scores", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.SubmitScoreInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "409": {"description": "Challenge is not accepted", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "422": {"description": "Scores do not decide a winner", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/tournaments/{tournamentID}/registrations": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["tournaments"],
                "summary": "Register the current player for a tournament",
                "parameters": [
                    {"type": "integer", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object", "additionalProperties": true}},
                    "403": {"description": "Registration closed", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "409": {"description": "Already registered or tournament full", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["tournaments"],
                "summary": "Withdraw the current player from a tournament",
                "parameters": [
                    {"type": "integer", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not registered", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/tournaments/{tournamentID}/results": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tournaments"],
                "summary": "Report the winner of a bracket match",
                "parameters": [
                    {"type": "integer", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true},
                    {"description": "Result", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.ReportResultInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "409": {"description": "Match already completed", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "422": {"description": "Match not ready or winner not in match", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        }
    },
    "definitions": {
        "handicap.Result": {
            "type": "object",
            "properties": {
                "rank_difference": {"type": "integer"},
                "handicap_challenger": {"type": "integer"},
                "handicap_opponent": {"type": "integer"},
                "is_valid": {"type": "boolean"},
                "explanation": {"type": "string"}
            }
        },
        "services.RegisterInput": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "display_name": {"type": "string"},
                "phone": {"type": "string"},
                "club_name": {"type": "string"}
            }
        },
        "services.LoginInput": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "services.CreateChallengeInput": {
            "type": "object",
            "properties": {
                "opponent_id": {"type": "integer"},
                "stake_amount": {"type": "integer"},
                "message": {"type": "string"}
            }
        },
        "services.SubmitScoreInput": {
            "type": "object",
            "properties": {
                "challenger_score": {"type": "integer"},
                "opponent_score": {"type": "integer"}
            }
        },
        "services.ReportResultInput": {
            "type": "object",
            "properties": {
                "match_number": {"type": "integer"},
                "winner_id": {"type": "integer"},
                "player1_score": {"type": "integer"},
                "player2_score": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "SABO Arena API",
	Description:      "Billiards club backend: ranks, stake challenges with handicaps, tournaments and moderation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
