package links

import (
	"recipeforge/internal/registry"
	"recipeforge/internal/schema"
)

// RegisterBuiltins wires the built-in link handler types and domain
// functions into reg (spec §4.4's handler family: llm, user_input,
// function, sql, storage.save/get/query/delete).
func RegisterBuiltins(reg *registry.Registry, schemaReg *schema.Registry, client LLMClient, historyLimit int) {
	llmHandler := NewLLMHandler(client, reg, schemaReg, historyLimit)
	reg.RegisterHandler("llm", llmHandler)

	reg.RegisterHandler("user_input", NewUserInputHandler())

	reg.RegisterHandler("function", NewFunctionHandler(reg))
	RegisterBuiltinFunctions(reg)

	reg.RegisterHandler("sql", NewSQLHandler())

	reg.RegisterHandler("storage.save", NewStorageSaveHandler())
	reg.RegisterHandler("storage.get", NewStorageGetHandler())
	reg.RegisterHandler("storage.query", NewStorageQueryHandler())
	reg.RegisterHandler("storage.delete", NewStorageDeleteHandler())
}
