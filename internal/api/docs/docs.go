// Package docs holds the OpenAPI document served at /swagger. It is kept in
// step with the swag annotations on the handlers by hand.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
	"schemes": {{ marshal .Schemes }},
	"swagger": "2.0",
	"info": {
		"description": "{{escape .Description}}",
		"title": "{{.Title}}",
		"contact": {
			"name": "HydraHost Support",
			"url": "https://github.com/jroosing/hydrahost"
		},
		"license": {
			"name": "MIT",
			"url": "https://opensource.org/licenses/MIT"
		},
		"version": "{{.Version}}"
	},
	"host": "{{.Host}}",
	"basePath": "{{.BasePath}}",
	"paths": {
		"/dns/records": {
			"get": {
				"security": [
					{
						"ApiKeyAuth": []
					}
				],
				"description": "Returns the zones and address records the DNS server answers from",
				"produces": [
					"application/json"
				],
				"tags": [
					"dns"
				],
				"summary": "List DNS records",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/models.DNSRecordsResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			},
			"post": {
				"security": [
					{
						"ApiKeyAuth": []
					}
				],
				"description": "Adds or replaces an A or AAAA record; the type follows the address family",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"dns"
				],
				"summary": "Add a DNS record",
				"parameters": [
					{
						"description": "Record to add",
						"name": "record",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/models.AddDNSRecordRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/models.DNSRecordOperationResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/dns/records/{name}": {
			"delete": {
				"security": [
					{
						"ApiKeyAuth": []
					}
				],
				"description": "Removes every record of a name",
				"produces": [
					"application/json"
				],
				"tags": [
					"dns"
				],
				"summary": "Delete DNS records",
				"parameters": [
					{
						"type": "string",
						"description": "Record name",
						"name": "name",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/models.DNSRecordOperationResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/health": {
			"get": {
				"description": "Returns API health status",
				"produces": [
					"application/json"
				],
				"tags": [
					"system"
				],
				"summary": "Health check",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/models.StatusResponse"
						}
					}
				}
			}
		},
		"/servers": {
			"get": {
				"security": [
					{
						"ApiKeyAuth": []
					}
				],
				"description": "Returns every configured server with its state and statistics",
				"produces": [
					"application/json"
				],
				"tags": [
					"servers"
				],
				"summary": "List servers",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/models.ServersResponse"
						}
					}
				}
			}
		},
		"/servers/{name}": {
			"get": {
				"security": [
					{
						"ApiKeyAuth": []
					}
				],
				"description": "Returns one server's state and statistics",
				"produces": [
					"application/json"
				],
				"tags": [
					"servers"
				],
				"summary": "Get a server",
				"parameters": [
					{
						"type": "string",
						"description": "Server name",
						"name": "name",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/models.ServerResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/servers/{name}/health": {
			"get": {
				"security": [
					{
						"ApiKeyAuth": []
					}
				],
				"description": "Reports whether a server is running",
				"produces": [
					"application/json"
				],
				"tags": [
					"servers"
				],
				"summary": "Server health",
				"parameters": [
					{
						"type": "string",
						"description": "Server name",
						"name": "name",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/models.ServerHealthResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/models.ServerHealthResponse"
						}
					}
				}
			}
		},
		"/servers/{name}/reset": {
			"post": {
				"security": [
					{
						"ApiKeyAuth": []
					}
				],
				"description": "Moves a server in the error state back to stopped so it can be started again",
				"produces": [
					"application/json"
				],
				"tags": [
					"servers"
				],
				"summary": "Reset a failed server",
				"parameters": [
					{
						"type": "string",
						"description": "Server name",
						"name": "name",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/models.ServerActionResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"409": {
						"description": "Server is not in the error state",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"501": {
						"description": "Not Implemented",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/servers/{name}/start": {
			"post": {
				"security": [
					{
						"ApiKeyAuth": []
					}
				],
				"description": "Starts a stopped server",
				"produces": [
					"application/json"
				],
				"tags": [
					"servers"
				],
				"summary": "Start a server",
				"parameters": [
					{
						"type": "string",
						"description": "Server name",
						"name": "name",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/models.ServerActionResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"409": {
						"description": "Server is not stopped",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/servers/{name}/stop": {
			"post": {
				"security": [
					{
						"ApiKeyAuth": []
					}
				],
				"description": "Stops a running server. Stopping a server that is not running is a no-op.",
				"produces": [
					"application/json"
				],
				"tags": [
					"servers"
				],
				"summary": "Stop a server",
				"parameters": [
					{
						"type": "string",
						"description": "Server name",
						"name": "name",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/models.ServerActionResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/stats": {
			"get": {
				"security": [
					{
						"ApiKeyAuth": []
					}
				],
				"description": "Returns runtime, system and process statistics and a summary of every server",
				"produces": [
					"application/json"
				],
				"tags": [
					"system"
				],
				"summary": "Host statistics",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/models.ServerStatsResponse"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"models.AddDNSRecordRequest": {
			"type": "object",
			"required": [
				"address",
				"name"
			],
			"properties": {
				"address": {
					"type": "string"
				},
				"name": {
					"type": "string"
				}
			}
		},
		"models.DNSRecord": {
			"type": "object",
			"properties": {
				"address": {
					"type": "string"
				},
				"name": {
					"type": "string"
				},
				"type": {
					"type": "string"
				}
			}
		},
		"models.DNSRecordOperationResponse": {
			"type": "object",
			"properties": {
				"address": {
					"type": "string"
				},
				"message": {
					"type": "string"
				},
				"name": {
					"type": "string"
				}
			}
		},
		"models.DNSRecordsResponse": {
			"type": "object",
			"properties": {
				"count": {
					"type": "integer"
				},
				"mode": {
					"type": "string"
				},
				"records": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/models.DNSRecord"
					}
				},
				"server": {
					"type": "string"
				},
				"zones": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/models.DNSZone"
					}
				}
			}
		},
		"models.DNSZone": {
			"type": "object",
			"properties": {
				"authoritative": {
					"type": "boolean"
				},
				"name": {
					"type": "string"
				}
			}
		},
		"models.ErrorResponse": {
			"type": "object",
			"properties": {
				"error": {
					"type": "string"
				}
			}
		},
		"models.ProcessStats": {
			"type": "object",
			"properties": {
				"cpu_percent": {
					"type": "number"
				},
				"pid": {
					"type": "integer"
				},
				"rss_mb": {
					"type": "number"
				},
				"threads": {
					"type": "integer"
				}
			}
		},
		"models.ServerActionResponse": {
			"type": "object",
			"properties": {
				"message": {
					"type": "string"
				},
				"name": {
					"type": "string"
				},
				"state": {
					"type": "string"
				}
			}
		},
		"models.ServerHealthResponse": {
			"type": "object",
			"properties": {
				"healthy": {
					"type": "boolean"
				},
				"name": {
					"type": "string"
				},
				"state": {
					"type": "string"
				}
			}
		},
		"models.ServerResponse": {
			"type": "object",
			"properties": {
				"counters": {
					"type": "object",
					"additionalProperties": {
						"type": "integer"
					}
				},
				"healthy": {
					"type": "boolean"
				},
				"kind": {
					"type": "string"
				},
				"name": {
					"type": "string"
				},
				"state": {
					"type": "string"
				},
				"statistics": {
					"$ref": "#/definitions/server.StatisticsSnapshot"
				}
			}
		},
		"models.ServerStatsResponse": {
			"type": "object",
			"properties": {
				"goroutines": {
					"type": "integer"
				},
				"memory_alloc_mb": {
					"type": "number"
				},
				"num_cpu": {
					"type": "integer"
				},
				"process": {
					"$ref": "#/definitions/models.ProcessStats"
				},
				"servers": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/models.ServerResponse"
					}
				},
				"start_time": {
					"type": "string"
				},
				"system": {
					"$ref": "#/definitions/models.SystemStats"
				},
				"totals": {
					"$ref": "#/definitions/models.ServerTotalsResponse"
				},
				"uptime": {
					"type": "string"
				},
				"uptime_seconds": {
					"type": "integer"
				}
			}
		},
		"models.ServerTotalsResponse": {
			"type": "object",
			"properties": {
				"active_connections": {
					"type": "integer"
				},
				"running": {
					"type": "integer"
				},
				"servers": {
					"type": "integer"
				},
				"total_connections": {
					"type": "integer"
				},
				"total_errors": {
					"type": "integer"
				},
				"total_requests": {
					"type": "integer"
				}
			}
		},
		"models.ServersResponse": {
			"type": "object",
			"properties": {
				"count": {
					"type": "integer"
				},
				"servers": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/models.ServerResponse"
					}
				}
			}
		},
		"models.StatusResponse": {
			"type": "object",
			"properties": {
				"status": {
					"type": "string"
				}
			}
		},
		"models.SystemStats": {
			"type": "object",
			"properties": {
				"hostname": {
					"type": "string"
				},
				"load1": {
					"type": "number"
				},
				"load15": {
					"type": "number"
				},
				"load5": {
					"type": "number"
				},
				"memory_total_mb": {
					"type": "number"
				},
				"memory_used_percent": {
					"type": "number"
				},
				"os": {
					"type": "string"
				},
				"platform": {
					"type": "string"
				},
				"platform_version": {
					"type": "string"
				}
			}
		},
		"server.StatisticsSnapshot": {
			"type": "object",
			"properties": {
				"active_connections": {
					"type": "integer"
				},
				"bytes_received": {
					"type": "integer"
				},
				"bytes_sent": {
					"type": "integer"
				},
				"start_time": {
					"type": "string"
				},
				"total_connections": {
					"type": "integer"
				},
				"total_errors": {
					"type": "integer"
				},
				"total_requests": {
					"type": "integer"
				},
				"uptime_seconds": {
					"type": "number"
				}
			}
		}
	},
	"securityDefinitions": {
		"ApiKeyAuth": {
			"type": "apiKey",
			"name": "X-API-Key",
			"in": "header"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "HydraHost Management API",
	Description:      "REST API for controlling HydraHost protocol servers and DNS records.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
