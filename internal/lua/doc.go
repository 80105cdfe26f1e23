// Package lua hosts hooks written in Lua.
//
// A hook script returns a table whose fields are the hook's members: name,
// description, icon, settings, item_filters, and the lifecycle functions
// accept, validate, publish, finalize, process_current_session,
// process_file, post_validate, post_publish, and post_finalize. Each loaded
// script gets its own sandboxed state without io, os, or debug; log, json,
// fs, properties, and tracking are available through require.
//
// Items reach scripts as userdata. Property bags index by field or
// subscript interchangeably, so props.frame and props["frame"] name the same
// entry.
package lua
