package linejs

const helpersJS = `
(function(){
  function parseJSON(line) {
    try { return JSON.parse(line); } catch (e) { return null; }
  }

  function isFence(line) {
    if (typeof line !== "string") return false;
    return line.trimStart().indexOf("` + "```" + `") === 0;
  }

  function clip(s, n) {
    if (typeof s !== "string") return s;
    if (typeof n !== "number" || n <= 0) return s;
    return s.length > n ? s.slice(0, n) + "..." : s;
  }

  function field(obj, path) {
    if (!obj || typeof path !== "string" || path === "") return null;
    const parts = path.split(".");
    let cur = obj;
    for (const p of parts) {
      if (cur == null) return null;
      cur = cur[p];
    }
    return (cur === undefined) ? null : cur;
  }

  globalThis.lines = {
    parseJSON,
    isFence,
    clip,
    field,
  };
})();
`
