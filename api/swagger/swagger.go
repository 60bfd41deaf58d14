package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable Editor API",
        "description": "Interactive editing sessions over committed school timetables",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {
            "name": "Editor",
            "description": "Drag-and-drop timetable editing sessions"
        },
        {
            "name": "Observability",
            "description": "Probes and metrics"
        }
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Liveness probe",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/ready": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Readiness probe for Postgres and Redis",
                "responses": {
                    "200": {
                        "description": "Ready"
                    },
                    "503": {
                        "description": "A dependency is unreachable"
                    }
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Prometheus metrics",
                "produces": [
                    "text/plain"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/api/v1/plans/{planId}/editor": {
            "post": {
                "tags": [
                    "Editor"
                ],
                "summary": "Open an editing session on a committed plan",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "planId",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Session view",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/ResponseEnvelope"
                                },
                                {
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/EditorSessionView"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "401": {
                        "description": "Missing or invalid bearer token",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Role may not edit",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Unknown or expired session",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "planId is not a positive integer",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "503": {
                        "description": "Too many open editing sessions",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/editor/sessions/{sessionId}": {
            "get": {
                "tags": [
                    "Editor"
                ],
                "summary": "Render an editing session",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "sessionId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Session view",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/ResponseEnvelope"
                                },
                                {
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/EditorSessionView"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "401": {
                        "description": "Missing or invalid bearer token",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Role may not edit",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Unknown or expired session",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "delete": {
                "tags": [
                    "Editor"
                ],
                "summary": "Close an editing session without saving",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "sessionId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "Closed"
                    },
                    "401": {
                        "description": "Missing or invalid bearer token",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Role may not edit",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Unknown or expired session",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/editor/sessions/{sessionId}/moves": {
            "post": {
                "tags": [
                    "Editor"
                ],
                "summary": "Apply a drag-and-drop move",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "sessionId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/MoveRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Session view",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/ResponseEnvelope"
                                },
                                {
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/EditorSessionView"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "401": {
                        "description": "Missing or invalid bearer token",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Role may not edit",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Unknown or expired session",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid payload, class mismatch or unsupported move",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Destination occupied, teacher double booked or session not editing",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "422": {
                        "description": "No assignment at source",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "description": "Moves a lesson or band group between grid cells and the staging area."
            }
        },
        "/api/v1/editor/sessions/{sessionId}/cells/{key}": {
            "delete": {
                "tags": [
                    "Editor"
                ],
                "summary": "Remove the lesson at a grid cell",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "sessionId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "key",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "class:day:period, period zero-based"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Session view",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/ResponseEnvelope"
                                },
                                {
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/EditorSessionView"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "401": {
                        "description": "Missing or invalid bearer token",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Role may not edit",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Unknown or expired session",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "422": {
                        "description": "No assignment at key",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/editor/sessions/{sessionId}/reset": {
            "post": {
                "tags": [
                    "Editor"
                ],
                "summary": "Discard local edits",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "sessionId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Session view",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/ResponseEnvelope"
                                },
                                {
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/EditorSessionView"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "401": {
                        "description": "Missing or invalid bearer token",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Role may not edit",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Unknown or expired session",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/editor/sessions/{sessionId}/save": {
            "post": {
                "tags": [
                    "Editor"
                ],
                "summary": "Persist the edited plan",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "sessionId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Session view",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/ResponseEnvelope"
                                },
                                {
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/EditorSessionView"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "401": {
                        "description": "Missing or invalid bearer token",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Role may not edit",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Unknown or expired session",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "A save is already in progress",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "412": {
                        "description": "Staging area is not empty",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "502": {
                        "description": "Plan store rejected the slots",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "description": "Replaces every slot of the plan in one transaction. Fails while the staging area holds items."
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "meta": {
                    "type": "object"
                }
            }
        },
        "EditorRef": {
            "type": "object",
            "required": [
                "kind"
            ],
            "properties": {
                "kind": {
                    "type": "string",
                    "enum": [
                        "grid",
                        "staging"
                    ]
                },
                "key": {
                    "type": "string",
                    "example": "1:Mon:0"
                },
                "stagingId": {
                    "type": "integer"
                }
            }
        },
        "MoveRequest": {
            "type": "object",
            "properties": {
                "from": {
                    "$ref": "#/definitions/EditorRef"
                },
                "to": {
                    "$ref": "#/definitions/EditorRef"
                }
            }
        },
        "EditorCell": {
            "type": "object",
            "properties": {
                "key": {
                    "type": "string"
                },
                "classId": {
                    "type": "integer"
                },
                "day": {
                    "type": "string"
                },
                "period": {
                    "type": "integer"
                },
                "subjectId": {
                    "type": "integer"
                },
                "teacherId": {
                    "type": "integer"
                },
                "roomId": {
                    "type": "integer"
                }
            }
        },
        "EditorStagingItem": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "kind": {
                    "type": "string",
                    "enum": [
                        "single",
                        "band"
                    ]
                },
                "subjectId": {
                    "type": "integer"
                },
                "teacherId": {
                    "type": "integer"
                },
                "members": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/EditorCell"
                    }
                }
            }
        },
        "EditorSessionView": {
            "type": "object",
            "properties": {
                "sessionId": {
                    "type": "string"
                },
                "planId": {
                    "type": "integer"
                },
                "planName": {
                    "type": "string"
                },
                "state": {
                    "type": "string",
                    "enum": [
                        "idle",
                        "editing"
                    ]
                },
                "dirty": {
                    "type": "boolean"
                },
                "saving": {
                    "type": "boolean"
                },
                "revision": {
                    "type": "integer"
                },
                "planUpdatedAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "expiresAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "slotsMeta": {
                    "type": "object"
                },
                "cells": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/EditorCell"
                    }
                },
                "staging": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/EditorStagingItem"
                    }
                },
                "labels": {
                    "type": "object"
                }
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
