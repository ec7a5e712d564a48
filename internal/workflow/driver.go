package workflow

import (
	"encoding/json"
	"fmt"
)

// driverParams is JSON-marshaled into the synthesized driver so the
// embedded values never need ad-hoc string escaping.
type driverParams struct {
	EntryFile      string         `json:"entryFile"`
	EventPipe      string         `json:"eventPipe"`
	LogPipe        string         `json:"logPipe"`
	ParentPID      int            `json:"parentPid"`
	ParentPollSecs int            `json:"parentPollSecs"`
	Run            RunOptions     `json:"run"`
}

// buildDriverScript synthesizes the inline Node/Bun driver spec.md §4.F
// describes: it installs a console-log transport writing to the log pipe
// (falling back to stderr-with-prefix when the pipe can't be opened),
// exposes a set-env→state-return bridge for legacy scripts, polls the
// parent PID, calls the workflow's run(), and prints one JSON object to
// stdout.
func buildDriverScript(p driverParams) (string, error) {
	paramsJSON, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(driverTemplate, string(paramsJSON)), nil
}

const driverTemplate = `
// Synthesized by the Workflow Host. Not meant to be edited or committed.
const params = %s;

const fs = require('fs');
const legacyState = {};

function writeLine(stream, obj) {
  try { stream.write(JSON.stringify(obj) + '\n'); } catch (_) {}
}

let logStream = null;
try {
  if (params.logPipe) logStream = fs.createWriteStream(params.logPipe, { flags: 'a' });
} catch (_) { logStream = null; }

function emitLog(level, message, data) {
  const entry = { level, message, timestamp: new Date().toISOString(), data };
  if (logStream) {
    writeLine(logStream, entry);
  } else {
    process.stderr.write('[' + level.toUpperCase() + '] ' + message + '\n');
  }
}

console.log = (...args) => emitLog('info', args.map(String).join(' '));
console.warn = (...args) => emitLog('warn', args.map(String).join(' '));
console.error = (...args) => emitLog('error', args.map(String).join(' '));

let eventStream = null;
try {
  if (params.eventPipe) eventStream = fs.createWriteStream(params.eventPipe, { flags: 'a' });
} catch (_) { eventStream = null; }

function emitEvent(type, stepId, stepIndex, data) {
  const evt = { __mcp_event__: true, type, step_id: stepId, step_index: stepIndex, data };
  if (eventStream) {
    writeLine(eventStream, evt);
  } else {
    process.stderr.write(JSON.stringify(evt) + '\n');
  }
}

// set-env -> state-return bridge for legacy scripts (spec.md §4.G).
global.__setEnv = (name, value) => { legacyState[name] = value; };

if (params.parentPid && params.parentPollSecs) {
  setInterval(() => {
    try {
      process.kill(params.parentPid, 0);
    } catch (_) {
      process.exit(1);
    }
  }, params.parentPollSecs * 1000).unref();
}

async function main() {
  const mod = await import(params.entryFile);
  const run = mod.run || (mod.default && mod.default.run);
  if (typeof run !== 'function') {
    throw new Error('workflow entry does not export run()');
  }

  const opts = {
    startFromStep: params.run.startFromStep,
    endAtStep: params.run.endAtStep,
    restoredState: params.run.restoredState,
  };

  const result = await run(params.run.inputs || {}, emitEvent, emitLog, opts);
  const state = Object.assign({}, legacyState, result && result.state);
  const declaredMetadata = mod.metadata || (mod.default && mod.default.metadata) || {};

  process.stdout.write(JSON.stringify({
    metadata: Object.assign({}, declaredMetadata, { entry: params.entryFile }),
    result: (result && result.result) || result,
    state,
  }) + '\n');
}

main().catch((err) => {
  emitLog('error', err && err.stack || String(err));
  process.exitCode = 1;
});
`
